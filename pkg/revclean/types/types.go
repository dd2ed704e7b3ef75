// Package types provides the data types shared by the revclean packages:
// candidate entries produced by a file stream, the cleanup options and the
// options forwarded to the deletion primitive.
package types

import (
	"path/filepath"
	"strings"
)

// DefaultManifestName is the file name upstream revisioning steps write by default.
const DefaultManifestName = "rev-manifest.json"

// SourceMapSuffix is appended to a revised path to keep its source map.
const SourceMapSuffix = ".map"

// Entry is one file-system object observed during a cleanup pass.
// It is owned by the producer; the filter only reads it.
type Entry struct {
	// Path is the resolved path used for status checks and deletion.
	Path string `json:"path"`

	// Base is the directory Relative is computed from.
	Base string `json:"base"`

	// Relative is Path relative to Base, in the producer's separator convention.
	Relative string `json:"relative"`

	// IsDir is the producer's view of the entry. The filter does not trust it
	// for deletion decisions and re-checks the file system instead.
	IsDir bool `json:"is_dir"`
}

// NewEntry builds an Entry for path below base.
func NewEntry(base, path string, isDir bool) (Entry, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: path, Base: base, Relative: rel, IsDir: isDir}, nil
}

// Name returns the last element of the entry's relative path.
func (e Entry) Name() string {
	rel := NormalizePath(e.Relative)
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// NormalizePath rewrites backslash separators to forward slashes so that
// paths produced on either convention compare equal.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// DeleteOptions is forwarded verbatim to the deletion primitive.
type DeleteOptions struct {
	// DryRun reports what would be deleted without touching the file system.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`

	// Force allows deleting the working directory and paths outside of it.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`

	// Cwd is the directory the Force guard is evaluated against.
	// Empty means the process working directory.
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty" mapstructure:"cwd"`

	// Trash moves files to the system trash instead of unlinking them.
	Trash bool `json:"trash" yaml:"trash" mapstructure:"trash"`

	// PruneEmptyDirs removes parent directories left empty by the deletion,
	// never ascending above Root.
	PruneEmptyDirs bool `json:"prune_empty_dirs" yaml:"prune_empty_dirs" mapstructure:"prune_empty_dirs"`

	// Root bounds PruneEmptyDirs. Empty disables pruning.
	Root string `json:"root,omitempty" yaml:"root,omitempty" mapstructure:"root"`
}

// Options configures one cleanup invocation.
type Options struct {
	// KeepOriginalFiles retains the pre-rename paths of the manifest.
	KeepOriginalFiles bool `json:"keep_original_files" yaml:"keep_original_files"`

	// KeepRenamedFiles retains the post-rename paths of the manifest.
	KeepRenamedFiles bool `json:"keep_renamed_files" yaml:"keep_renamed_files"`

	// KeepSourceMapFiles additionally retains <revised>.map for every entry.
	KeepSourceMapFiles bool `json:"keep_source_map_files" yaml:"keep_source_map_files"`

	// KeepManifestFile retains the manifest's own base name.
	KeepManifestFile bool `json:"keep_manifest_file" yaml:"keep_manifest_file"`

	// EmitChunks forwards survivors downstream. When false the filter is a sink.
	EmitChunks bool `json:"emit_chunks" yaml:"emit_chunks"`

	// Delete is passed to the deletion primitive unchanged.
	Delete DeleteOptions `json:"del_options" yaml:"del_options"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		KeepOriginalFiles:  true,
		KeepRenamedFiles:   true,
		KeepSourceMapFiles: false,
		KeepManifestFile:   true,
		EmitChunks:         false,
		Delete:             DeleteOptions{},
	}
}
