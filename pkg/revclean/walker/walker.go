// Package walker lists the contents of a destination directory as a
// deterministic stream of entries for the cleanup filter.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/revclean/pkg/revclean/logging"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// Options configures a walk.
type Options struct {
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root, and against base names. "**" crosses directories.
	Exclude []string

	// Follow follows symbolic links to directories.
	Follow bool

	// Workers bounds fastwalk's parallelism. Zero uses fastwalk's default.
	Workers int
}

// WalkError records a path that could not be read during the walk.
type WalkError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result is the outcome of a walk.
type Result struct {
	// Entries are sorted by normalized relative path.
	Entries []types.Entry

	// Errors lists unreadable paths below the root.
	Errors []WalkError
}

// Walk lists every file and directory below root, excluding root itself.
// Traversal runs in parallel; the result is sorted so the order is stable.
func Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve absolute path for %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", absRoot)
	}

	matchers, err := compile(opts.Exclude)
	if err != nil {
		return nil, err
	}

	w := &walk{root: absRoot, exclude: matchers, ctx: ctx}
	conf := fastwalk.Config{
		Follow:     opts.Follow,
		NumWorkers: opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, absRoot, w.callback)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, walkErr
	}

	sort.Slice(w.entries, func(i, j int) bool {
		return types.NormalizePath(w.entries[i].Relative) < types.NormalizePath(w.entries[j].Relative)
	})
	sort.Slice(w.errors, func(i, j int) bool {
		return w.errors[i].Path < w.errors[j].Path
	})

	logging.Get("walker").Debug("walk complete", "root", absRoot, "entries", len(w.entries), "errors", len(w.errors))

	return &Result{Entries: w.entries, Errors: w.errors}, nil
}

// walk holds the state of one traversal. The callback runs concurrently.
type walk struct {
	root    string
	exclude []glob.Glob
	ctx     context.Context

	mu      sync.Mutex
	entries []types.Entry
	errors  []WalkError
}

func (w *walk) callback(path string, d fs.DirEntry, err error) error {
	select {
	case <-w.ctx.Done():
		return fastwalk.ErrSkipFiles
	default:
	}

	if err != nil {
		w.mu.Lock()
		w.errors = append(w.errors, WalkError{Path: path, Err: err.Error()})
		w.mu.Unlock()
		return nil
	}

	if path == w.root {
		return nil
	}

	entry, err := types.NewEntry(w.root, path, d.IsDir())
	if err != nil {
		return err
	}

	if w.excluded(types.NormalizePath(entry.Relative)) {
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	}

	w.mu.Lock()
	w.entries = append(w.entries, entry)
	w.mu.Unlock()
	return nil
}

// excluded reports whether rel or its base name matches an exclude pattern.
func (w *walk) excluded(rel string) bool {
	base := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		base = rel[i+1:]
	}
	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// compile parses exclude patterns with '/' as the separator.
func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(types.NormalizePath(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}
