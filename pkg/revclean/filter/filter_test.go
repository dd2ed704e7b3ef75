package filter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/revclean/pkg/revclean/deleter"
	"github.com/jamesainslie/revclean/pkg/revclean/manifest"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appManifest = `{"app.js":"app-a1b2.js"}`

func TestNew_MissingManifest(t *testing.T) {
	t.Parallel()
	rec := &deleter.Recorder{}

	f, err := New(filepath.Join(t.TempDir(), "rev-manifest.json"), WithDeleter(rec))
	require.Error(t, err)
	assert.Nil(t, f)
	assert.ErrorIs(t, err, manifest.ErrManifestUnavailable)
	assert.Contains(t, err.Error(), "error while reading the specified manifest file")
	assert.Empty(t, rec.Calls(), "deletion primitive must never run")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest)

	f, err := New(filepath.Join(root, "rev-manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultOptions(), f.Options())
	assert.Equal(t, []string{"app-a1b2.js", "app.js", "rev-manifest.json"}, f.AllowList().Paths())
}

func TestFilter_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      []Option
		wantBatch []string
	}{
		{
			name:      "defaults delete only unreferenced files",
			wantBatch: []string{"old.js"},
		},
		{
			name:      "dropping originals deletes them",
			opts:      []Option{WithKeepOriginalFiles(false)},
			wantBatch: []string{"app.js", "old.js"},
		},
		{
			name:      "dropping the manifest deletes it",
			opts:      []Option{WithKeepManifestFile(false)},
			wantBatch: []string{"old.js", "rev-manifest.json"},
		},
		{
			name:      "dropping renamed files deletes them",
			opts:      []Option{WithKeepRenamedFiles(false)},
			wantBatch: []string{"app-a1b2.js", "old.js"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "old.js")
			rec := &deleter.Recorder{}

			f, err := New(filepath.Join(root, "rev-manifest.json"), append(tt.opts, WithDeleter(rec))...)
			require.NoError(t, err)

			result, err := Run(f, collect(t, root))
			require.NoError(t, err)

			assert.Equal(t, absPaths(root, tt.wantBatch...), result.Batch)
			calls := rec.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, absPaths(root, tt.wantBatch...), calls[0].Paths)
		})
	}
}

func TestFilter_SourceMaps(t *testing.T) {
	t.Parallel()

	t.Run("maps are deleted by default", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "app-a1b2.js.map")
		rec := &deleter.Recorder{}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec))
		require.NoError(t, err)
		result, err := Run(f, collect(t, root))
		require.NoError(t, err)

		assert.Equal(t, absPaths(root, "app-a1b2.js.map"), result.Batch)
	})

	t.Run("maps survive when kept", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "app-a1b2.js.map")
		rec := &deleter.Recorder{}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec), WithKeepSourceMapFiles(true))
		require.NoError(t, err)
		result, err := Run(f, collect(t, root))
		require.NoError(t, err)

		assert.Empty(t, result.Batch)
		assert.Equal(t, 4, result.Survivors)
	})
}

func TestFilter_Directories(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "old/old/old", "img/old/old.gif")
	rec := &deleter.Recorder{}

	var emitted []string
	f, err := New(filepath.Join(root, "rev-manifest.json"),
		WithDeleter(rec),
		WithEmitChunks(true),
		WithEmitter(func(e types.Entry) error {
			emitted = append(emitted, types.NormalizePath(e.Relative))
			return nil
		}),
	)
	require.NoError(t, err)

	result, err := Run(f, collect(t, root))
	require.NoError(t, err)

	assert.Equal(t, absPaths(root, "img/old/old.gif", "old/old/old"), result.Batch)
	for _, p := range result.Batch {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.False(t, info.IsDir(), "directories are never batched")
	}
	assert.Equal(t, []string{
		"app-a1b2.js",
		"app.js",
		"img",
		"img/old",
		"old",
		"old/old",
		"rev-manifest.json",
	}, emitted)
}

func TestFilter_EmitChunks(t *testing.T) {
	t.Parallel()

	t.Run("disabled emits nothing", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "old.js", "js/lib.js")

		calls := 0
		f, err := New(filepath.Join(root, "rev-manifest.json"),
			WithDeleter(&deleter.Recorder{}),
			WithEmitter(func(types.Entry) error {
				calls++
				return nil
			}),
		)
		require.NoError(t, err)

		result, err := Run(f, collect(t, root))
		require.NoError(t, err)
		assert.Zero(t, calls)
		assert.Zero(t, result.Emitted)
		assert.Equal(t, 4, result.Survivors)
	})

	t.Run("enabled emits each survivor once in order", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "old.js")
		entries := collect(t, root)

		var emitted []types.Entry
		f, err := New(filepath.Join(root, "rev-manifest.json"),
			WithDeleter(&deleter.Recorder{}),
			WithEmitChunks(true),
			WithEmitter(func(e types.Entry) error {
				emitted = append(emitted, e)
				return nil
			}),
		)
		require.NoError(t, err)

		result, err := Run(f, entries)
		require.NoError(t, err)

		var want []types.Entry
		for _, e := range entries {
			if e.Relative != "old.js" {
				want = append(want, e)
			}
		}
		assert.Equal(t, want, emitted, "survivors are forwarded unchanged")
		assert.Equal(t, 3, result.Emitted)
		assert.Equal(t, 4, result.Scanned)
	})

	t.Run("emitter errors propagate", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "app.js")
		boom := errors.New("downstream closed")

		f, err := New(filepath.Join(root, "rev-manifest.json"),
			WithDeleter(&deleter.Recorder{}),
			WithEmitChunks(true),
			WithEmitter(func(types.Entry) error { return boom }),
		)
		require.NoError(t, err)

		err = f.Process(types.Entry{Path: filepath.Join(root, "app.js"), Base: root, Relative: "app.js"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestFilter_PathSeparatorInvariance(t *testing.T) {
	t.Parallel()

	t.Run("backslash manifest matches slash candidate", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, `{"a\\b.js":"a\\b-hash.js"}`, "a/b-hash.js", "a/b.js")
		rec := &deleter.Recorder{}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec))
		require.NoError(t, err)
		result, err := Run(f, collect(t, root))
		require.NoError(t, err)
		assert.Empty(t, result.Batch)
	})

	t.Run("slash manifest matches backslash candidate", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, `{"a/b.js":"a/b-hash.js"}`, "a/b-hash.js")
		rec := &deleter.Recorder{}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec))
		require.NoError(t, err)

		err = f.Process(types.Entry{
			Path:     filepath.Join(root, "a", "b-hash.js"),
			Base:     root,
			Relative: `a\b-hash.js`,
		})
		require.NoError(t, err)

		result, err := f.Finish()
		require.NoError(t, err)
		assert.Empty(t, result.Batch)
		assert.Equal(t, 1, result.Survivors)
	})
}

func TestFilter_StatusFailure(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest)
	rec := &deleter.Recorder{}

	f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec), WithEmitChunks(true),
		WithEmitter(func(types.Entry) error {
			t.Fatal("failed entries must not be emitted")
			return nil
		}))
	require.NoError(t, err)

	vanished := filepath.Join(root, "vanished.js")
	err = f.Process(types.Entry{Path: vanished, Base: root, Relative: "vanished.js"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, vanished, statusErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	result, err := f.Finish()
	require.NoError(t, err)
	assert.Empty(t, result.Batch, "no decision is made for a failed entry")
}

func TestFilter_AllowListedEntriesSkipStatusCheck(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest)

	checked := 0
	f, err := New(filepath.Join(root, "rev-manifest.json"),
		WithDeleter(&deleter.Recorder{}),
		WithLstat(func(path string) (fs.FileInfo, error) {
			checked++
			return os.Lstat(path)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, f.Process(types.Entry{Path: filepath.Join(root, "app.js"), Base: root, Relative: "app.js"}))
	assert.Zero(t, checked)
}

func TestFilter_Symlink(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest, "app-a1b2.js")
	link := filepath.Join(root, "latest.js")
	if err := os.Symlink(filepath.Join(root, "app-a1b2.js"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(&deleter.Recorder{}))
	require.NoError(t, err)

	result, err := Run(f, []types.Entry{{Path: link, Base: root, Relative: "latest.js"}})
	require.NoError(t, err)
	assert.Empty(t, result.Batch, "only regular files are deleted")
}

func TestFilter_Finish(t *testing.T) {
	t.Parallel()

	t.Run("empty batch still calls deleter", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest)
		rec := &deleter.Recorder{}
		delOpts := types.DeleteOptions{DryRun: true, Force: true}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec), WithDeleteOptions(delOpts))
		require.NoError(t, err)

		result, err := f.Finish()
		require.NoError(t, err)
		assert.True(t, result.DryRun)

		calls := rec.Calls()
		require.Len(t, calls, 1)
		assert.Empty(t, calls[0].Paths)
		assert.Equal(t, delOpts, calls[0].Options)
	})

	t.Run("deleter errors propagate unchanged", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "old.js")
		boom := errors.New("permission denied")

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(&deleter.Recorder{Err: boom}))
		require.NoError(t, err)

		_, err = Run(f, collect(t, root))
		assert.Same(t, boom, err)
	})

	t.Run("filter cannot be reused", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "old.js")
		rec := &deleter.Recorder{}

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(rec))
		require.NoError(t, err)
		_, err = f.Finish()
		require.NoError(t, err)

		_, err = f.Finish()
		assert.ErrorIs(t, err, ErrFinished)
		err = f.Process(types.Entry{Path: filepath.Join(root, "old.js"), Base: root, Relative: "old.js"})
		assert.ErrorIs(t, err, ErrFinished)
		assert.Len(t, rec.Calls(), 1)
	})

	t.Run("reclaimed bytes sum batched files", func(t *testing.T) {
		t.Parallel()
		root := buildDist(t, appManifest, "old.js", "older.js")

		f, err := New(filepath.Join(root, "rev-manifest.json"), WithDeleter(&deleter.Recorder{}))
		require.NoError(t, err)
		result, err := Run(f, collect(t, root))
		require.NoError(t, err)

		assert.Equal(t, int64(2*len("remove-me")), result.ReclaimedBytes)
	})
}

func TestFilter_DeletesFromDisk(t *testing.T) {
	t.Parallel()
	root := buildDist(t, appManifest, "app.js", "app-a1b2.js", "old.js", "js/old.js")

	run := func() *Result {
		f, err := New(filepath.Join(root, "rev-manifest.json"),
			WithDeleteOptions(types.DeleteOptions{Cwd: root}))
		require.NoError(t, err)
		result, err := Run(f, collect(t, root))
		require.NoError(t, err)
		return result
	}

	first := run()
	assert.Equal(t, absPaths(root, "js/old.js", "old.js"), first.Deleted)
	assert.NoFileExists(t, filepath.Join(root, "old.js"))
	assert.NoFileExists(t, filepath.Join(root, "js", "old.js"))
	assert.DirExists(t, filepath.Join(root, "js"))
	assert.FileExists(t, filepath.Join(root, "app.js"))
	assert.FileExists(t, filepath.Join(root, "app-a1b2.js"))
	assert.FileExists(t, filepath.Join(root, "rev-manifest.json"))

	second := run()
	assert.Empty(t, second.Batch, "a second pass deletes nothing")
	assert.Empty(t, second.Deleted)
}

func TestFilter_IndependentInvocations(t *testing.T) {
	t.Parallel()
	rootA := buildDist(t, appManifest, "old.js")
	rootB := buildDist(t, `{"b.js":"b-1.js"}`, "app.js")

	recA, recB := &deleter.Recorder{}, &deleter.Recorder{}
	fa, err := New(filepath.Join(rootA, "rev-manifest.json"), WithDeleter(recA))
	require.NoError(t, err)
	fb, err := New(filepath.Join(rootB, "rev-manifest.json"), WithDeleter(recB))
	require.NoError(t, err)

	entriesA, entriesB := collect(t, rootA), collect(t, rootB)
	for i := 0; i < len(entriesA) || i < len(entriesB); i++ {
		if i < len(entriesA) {
			require.NoError(t, fa.Process(entriesA[i]))
		}
		if i < len(entriesB) {
			require.NoError(t, fb.Process(entriesB[i]))
		}
	}

	resA, err := fa.Finish()
	require.NoError(t, err)
	resB, err := fb.Finish()
	require.NoError(t, err)

	assert.Equal(t, absPaths(rootA, "old.js"), resA.Batch)
	assert.Equal(t, absPaths(rootB, "app.js"), resB.Batch)
}

// buildDist creates a destination directory holding rev-manifest.json with
// the given content plus the listed files.
func buildDist(t *testing.T, manifestJSON string, files ...string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "rev-manifest.json"), []byte(manifestJSON), 0o644))
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("remove-me"), 0o644))
	}
	return root
}

// collect lists root's entries in lexical order, the way a file stream would.
func collect(t *testing.T, root string) []types.Entry {
	t.Helper()
	var entries []types.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		e, err := types.NewEntry(root, path, d.IsDir())
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	return entries
}

// absPaths joins slash-separated relative paths onto root.
func absPaths(root string, rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return out
}
