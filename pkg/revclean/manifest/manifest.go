package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// Load reads the manifest at path and builds its allow-list.
// Any failure is returned as a *LoadError and no allow-list is produced.
func Load(path string, policy Policy) (*AllowList, error) {
	mapping, err := readMapping(path)
	if err != nil {
		return nil, err
	}
	return build(filepath.Base(path), mapping, policy), nil
}

// Parse builds an allow-list from a manifest read from r.
// name stands in for the manifest file name when KeepManifestFile is set.
func Parse(r io.Reader, name string, policy Policy) (*AllowList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	mapping, err := decode(data)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	return build(filepath.Base(name), mapping, policy), nil
}

// ReadEntries returns the manifest's mappings sorted by original path.
func ReadEntries(path string) ([]Entry, error) {
	mapping, err := readMapping(path)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(mapping))
	for original, revised := range mapping {
		entries = append(entries, Entry{Original: original, Revised: revised})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Original < entries[j].Original
	})
	return entries, nil
}

// readMapping reads and decodes the manifest file.
func readMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	mapping, err := decode(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return mapping, nil
}

// decode parses a flat object of string values. Nested values, arrays and
// non-object documents are rejected.
func decode(data []byte) (map[string]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if mapping == nil {
		// A literal null decodes without error.
		return nil, fmt.Errorf("parsing manifest: expected an object")
	}
	return mapping, nil
}

// build assembles the allow-list for the given policy.
func build(name string, mapping map[string]string, policy Policy) *AllowList {
	allow := newAllowList()

	if policy.KeepManifestFile {
		allow.add(name)
	}

	for original, revised := range mapping {
		if policy.KeepOriginalFiles {
			allow.add(original)
		}
		if policy.KeepRenamedFiles {
			allow.add(revised)
		}
		if policy.KeepSourceMapFiles {
			allow.add(types.NormalizePath(revised) + types.SourceMapSuffix)
		}
	}

	return allow
}
