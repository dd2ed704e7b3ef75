package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPolicy = Policy{
	KeepManifestFile:  true,
	KeepOriginalFiles: true,
	KeepRenamedFiles:  true,
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("default policy keeps originals, revisions and manifest", func(t *testing.T) {
		t.Parallel()
		path := writeManifest(t, `{"app.js":"app-a1b2.js","css/main.css":"css/main-c3d4.css"}`)

		allow, err := Load(path, defaultPolicy)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"app-a1b2.js",
			"app.js",
			"css/main-c3d4.css",
			"css/main.css",
			"rev-manifest.json",
		}, allow.Paths())
	})

	t.Run("each toggle is independent", func(t *testing.T) {
		t.Parallel()
		path := writeManifest(t, `{"app.js":"app-a1b2.js"}`)

		tests := []struct {
			name   string
			policy Policy
			want   []string
		}{
			{name: "nothing", policy: Policy{}, want: []string{}},
			{name: "manifest only", policy: Policy{KeepManifestFile: true}, want: []string{"rev-manifest.json"}},
			{name: "originals only", policy: Policy{KeepOriginalFiles: true}, want: []string{"app.js"}},
			{name: "renamed only", policy: Policy{KeepRenamedFiles: true}, want: []string{"app-a1b2.js"}},
			{name: "source maps only", policy: Policy{KeepSourceMapFiles: true}, want: []string{"app-a1b2.js.map"}},
			{
				name:   "source maps are additive to renamed",
				policy: Policy{KeepRenamedFiles: true, KeepSourceMapFiles: true},
				want:   []string{"app-a1b2.js", "app-a1b2.js.map"},
			},
		}

		for _, tt := range tests {
			allow, err := Load(path, tt.policy)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, allow.Paths(), tt.name)
		}
	})

	t.Run("backslashes are normalized", func(t *testing.T) {
		t.Parallel()
		path := writeManifest(t, `{"js\\app.js":"js\\app-a1b2.js"}`)

		allow, err := Load(path, Policy{KeepOriginalFiles: true, KeepRenamedFiles: true, KeepSourceMapFiles: true})
		require.NoError(t, err)

		assert.True(t, allow.Contains("js/app.js"))
		assert.True(t, allow.Contains("js/app-a1b2.js"))
		assert.True(t, allow.Contains("js/app-a1b2.js.map"))
		assert.True(t, allow.Contains(`js\app-a1b2.js`))
		for _, p := range allow.Paths() {
			assert.NotContains(t, p, `\`)
		}
	})

	t.Run("manifest basename only", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "build", "assets")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, "assets.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

		allow, err := Load(path, Policy{KeepManifestFile: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"assets.json"}, allow.Paths())
	})

	t.Run("empty object yields empty mapping", func(t *testing.T) {
		t.Parallel()
		path := writeManifest(t, `{}`)

		allow, err := Load(path, Policy{KeepOriginalFiles: true, KeepRenamedFiles: true})
		require.NoError(t, err)
		assert.Equal(t, 0, allow.Len())
	})
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rev-manifest.json")

		allow, err := Load(path, defaultPolicy)
		require.Error(t, err)
		assert.Nil(t, allow)

		assert.True(t, errors.Is(err, ErrManifestUnavailable))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.True(t, strings.HasPrefix(err.Error(), "error while reading the specified manifest file"))
		assert.Contains(t, err.Error(), "no such file or directory")

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, path, loadErr.Path)
	})

	invalid := []struct {
		name    string
		content string
	}{
		{name: "malformed json", content: `{"app.js":`},
		{name: "array", content: `["app.js"]`},
		{name: "null", content: `null`},
		{name: "string", content: `"app.js"`},
		{name: "nested object", content: `{"app.js":{"path":"app-a1b2.js"}}`},
		{name: "number value", content: `{"app.js":42}`},
		{name: "empty file", content: ``},
	}

	for _, tt := range invalid {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeManifest(t, tt.content)

			_, err := Load(path, defaultPolicy)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrManifestUnavailable)
			assert.Contains(t, err.Error(), "error while reading the specified manifest file")
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	allow, err := Parse(strings.NewReader(`{"a.js":"a-1.js"}`), "dist/rev-manifest.json", defaultPolicy)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1.js", "a.js", "rev-manifest.json"}, allow.Paths())

	_, err = Parse(strings.NewReader(`{`), "rev-manifest.json", defaultPolicy)
	assert.ErrorIs(t, err, ErrManifestUnavailable)
}

func TestLoad_ByteOrderMark(t *testing.T) {
	t.Parallel()
	path := writeManifest(t, "\xef\xbb\xbf{\"app.js\":\"app-a1b2.js\"}")

	allow, err := Load(path, defaultPolicy)
	require.NoError(t, err)
	assert.True(t, allow.Contains("app-a1b2.js"))
}

func TestReadEntries(t *testing.T) {
	t.Parallel()
	path := writeManifest(t, `{"b.js":"b-2.js","a.js":"a-1.js"}`)

	entries, err := ReadEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Original: "a.js", Revised: "a-1.js"},
		{Original: "b.js", Revised: "b-2.js"},
	}, entries)

	_, err = ReadEntries(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrManifestUnavailable)
}

// writeManifest writes content to a rev-manifest.json in a temp directory.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rev-manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
