package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Rotation limits the size of the log file and the number of rotated
// copies kept next to it.
type Rotation struct {
	// MaxSize is the size in bytes at which the file is rotated.
	// Zero uses DefaultMaxSize.
	MaxSize int64

	// MaxBackups is the number of rotated files to keep. Zero keeps all.
	MaxBackups int
}

// DefaultMaxSize is the rotation threshold used when Rotation.MaxSize is zero.
const DefaultMaxSize = 5 * 1024 * 1024

// DefaultMaxBackups is the number of rotated files kept by default.
const DefaultMaxBackups = 3

// rotatingFile is an append-only log file that rotates itself by size.
type rotatingFile struct {
	path string
	cfg  Rotation

	mu   sync.Mutex
	file *os.File
	size int64
}

func openRotating(path string, cfg Rotation) (*rotatingFile, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &rotatingFile{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *rotatingFile) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// rotate renames the current file to <base>.<timestamp><ext>, reopens the
// path and drops backups beyond MaxBackups.
func (w *rotatingFile) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("2006-01-02-150405.000"), ext)
	if err := os.Rename(w.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.prune()
	return nil
}

func (w *rotatingFile) prune() {
	if w.cfg.MaxBackups <= 0 {
		return
	}

	backups := w.backups()
	if len(backups) <= w.cfg.MaxBackups {
		return
	}
	for _, path := range backups[w.cfg.MaxBackups:] {
		_ = os.Remove(path)
	}
}

// backups lists rotated files, newest first.
func (w *rotatingFile) backups() []string {
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var found []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || n == name || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ext) {
			continue
		}
		found = append(found, filepath.Join(dir, n))
	}
	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(found)))
	return found
}
