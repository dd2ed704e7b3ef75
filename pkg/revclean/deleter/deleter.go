// Package deleter provides the deletion primitive used at the end of a
// cleanup pass. It removes a batch of paths synchronously, optionally moving
// them to the system trash and pruning directories left empty.
package deleter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/revclean/pkg/revclean/logging"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

var (
	// ErrOutsideCwd is returned when a path lies outside the working directory
	// and Force is not set.
	ErrOutsideCwd = errors.New("cannot delete files/directories outside the current working directory, use force to override")

	// ErrDeleteCwd is returned when the working directory itself is targeted
	// and Force is not set.
	ErrDeleteCwd = errors.New("cannot delete the current working directory, use force to override")
)

// Deleter removes a batch of paths.
// It returns the paths that were (or, in dry-run mode, would be) removed.
type Deleter interface {
	Delete(paths []string, opts types.DeleteOptions) ([]string, error)
}

// OSDeleter deletes paths from the local file system.
type OSDeleter struct {
	trash  func(path string) error
	remove func(path string) error
}

// NewOSDeleter returns a Deleter backed by the os package.
func NewOSDeleter() *OSDeleter {
	return &OSDeleter{
		trash:  MoveToTrash,
		remove: os.RemoveAll,
	}
}

// Delete removes paths in order. Relative paths are resolved against
// opts.Cwd. Paths that no longer exist are skipped. Guard violations are
// reported before anything is removed; removal stops at the first failure.
func (d *OSDeleter) Delete(paths []string, opts types.DeleteOptions) ([]string, error) {
	logger := logging.Get("deleter")

	cwd, err := resolveCwd(opts.Cwd)
	if err != nil {
		return nil, err
	}

	targets, err := resolveTargets(paths, cwd, opts.Force)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(targets))
	for _, target := range targets {
		if _, err := os.Lstat(target); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return deleted, fmt.Errorf("cannot stat %q: %w", target, err)
		}

		if opts.DryRun {
			deleted = append(deleted, target)
			continue
		}

		if err := d.removeOne(target, opts.Trash); err != nil {
			return deleted, err
		}
		logger.Debug("deleted", "path", target, "trash", opts.Trash)
		deleted = append(deleted, target)
	}

	if opts.PruneEmptyDirs && opts.Root != "" && !opts.DryRun {
		pruned, err := pruneEmptyParents(deleted, opts.Root)
		deleted = append(deleted, pruned...)
		if err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}

// removeOne deletes or trashes a single path.
func (d *OSDeleter) removeOne(path string, trash bool) error {
	if trash {
		return d.trash(path)
	}
	if err := d.remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}

// resolveCwd returns the absolute guard directory.
func resolveCwd(cwd string) (string, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determining working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path for %q: %w", cwd, err)
	}
	return abs, nil
}

// resolveTargets makes paths absolute, drops duplicates and applies the
// working directory guard.
func resolveTargets(paths []string, cwd string, force bool) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	targets := make([]string, 0, len(paths))

	for _, p := range paths {
		target := p
		if !filepath.IsAbs(target) {
			target = filepath.Join(cwd, target)
		}
		target = filepath.Clean(target)

		if !force {
			if target == cwd {
				return nil, fmt.Errorf("%w: %s", ErrDeleteCwd, target)
			}
			if !isWithin(target, cwd) {
				return nil, fmt.Errorf("%w: %s", ErrOutsideCwd, target)
			}
		}

		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}

	return targets, nil
}

// pruneEmptyParents removes directories emptied by the deletion, walking up
// from each deleted path and stopping below root.
func pruneEmptyParents(deleted []string, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve absolute path for %q: %w", root, err)
	}

	var pruned []string
	done := make(map[string]struct{})

	for _, path := range deleted {
		for dir := filepath.Dir(path); dir != absRoot && isWithin(dir, absRoot); dir = filepath.Dir(dir) {
			if _, ok := done[dir]; ok {
				break
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					break
				}
				return pruned, fmt.Errorf("reading %q: %w", dir, err)
			}
			if len(entries) > 0 {
				break
			}

			if err := os.Remove(dir); err != nil {
				return pruned, fmt.Errorf("failed to prune %q: %w", dir, err)
			}
			done[dir] = struct{}{}
			pruned = append(pruned, dir)
		}
	}

	return pruned, nil
}

// isWithin reports whether path is strictly below dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Ensure OSDeleter implements Deleter.
var _ Deleter = (*OSDeleter)(nil)
