package deleter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// commandTimeout is the maximum time to wait for trash commands.
const commandTimeout = 30 * time.Second

// MoveToTrash moves a file or directory to the system trash.
// On macOS it asks Finder, on Linux it tries gio and then trash-put.
// Falls back to permanent deletion when no trash is available.
func MoveToTrash(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return trashMacOS(absPath)
	case "linux":
		return trashLinux(absPath)
	default:
		return fallbackDelete(absPath)
	}
}

// trashMacOS keeps Finder's "Put Back" working.
func trashMacOS(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		return fallbackDelete(path)
	}
	return nil
}

// trashLinux tries the GNOME and XDG trash tools in turn.
func trashLinux(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	candidates := [][]string{
		{"gio", "trash"},
		{"trash-put"},
	}
	for _, c := range candidates {
		bin, err := exec.LookPath(c[0])
		if err != nil {
			continue
		}
		args := append(c[1:], path)
		if err := exec.CommandContext(ctx, bin, args...).Run(); err == nil {
			return nil
		}
	}

	return fallbackDelete(path)
}

// fallbackDelete permanently removes a file or directory.
func fallbackDelete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}
