// Package manifest loads revision manifests into allow-lists of paths that
// must survive a cleanup pass.
package manifest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// ErrManifestUnavailable is matched by every manifest read or parse failure.
var ErrManifestUnavailable = errors.New("manifest unavailable")

// errorPrefix names the failing operation in LoadError messages.
const errorPrefix = "error while reading the specified manifest file. Is the path correct?"

// LoadError reports a manifest that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %v", errorPrefix, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrManifestUnavailable, e.Err}
}

// Entry is one original -> revised mapping from a manifest.
type Entry struct {
	Original string `json:"original"`
	Revised  string `json:"revised"`
}

// Policy selects which manifest paths are added to the allow-list.
type Policy struct {
	KeepManifestFile   bool
	KeepOriginalFiles  bool
	KeepRenamedFiles   bool
	KeepSourceMapFiles bool
}

// PolicyFrom extracts the allow-list policy from cleanup options.
func PolicyFrom(opts types.Options) Policy {
	return Policy{
		KeepManifestFile:   opts.KeepManifestFile,
		KeepOriginalFiles:  opts.KeepOriginalFiles,
		KeepRenamedFiles:   opts.KeepRenamedFiles,
		KeepSourceMapFiles: opts.KeepSourceMapFiles,
	}
}

// AllowList is the set of normalized relative paths that must be kept.
type AllowList struct {
	paths map[string]struct{}
}

func newAllowList() *AllowList {
	return &AllowList{paths: make(map[string]struct{})}
}

func (a *AllowList) add(p string) {
	a.paths[types.NormalizePath(p)] = struct{}{}
}

// Contains reports whether rel, after normalization, is allow-listed.
func (a *AllowList) Contains(rel string) bool {
	_, ok := a.paths[types.NormalizePath(rel)]
	return ok
}

// Len returns the number of distinct allow-listed paths.
func (a *AllowList) Len() int {
	return len(a.paths)
}

// Paths returns the allow-listed paths in sorted order.
func (a *AllowList) Paths() []string {
	out := make([]string, 0, len(a.paths))
	for p := range a.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
