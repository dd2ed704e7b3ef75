// Package output renders cleanup reports in several formats
// (pretty, plain, json, yaml).
//
// Formatters are registered by name and selected at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/revclean/pkg/revclean/filter"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// Report is the formatted view of one cleanup pass.
type Report struct {
	// Root is the destination directory that was cleaned.
	Root string `json:"root" yaml:"root"`

	// Manifest is the manifest file the allow-list came from.
	Manifest string `json:"manifest" yaml:"manifest"`

	// DryRun is set when nothing was actually removed.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// Deleted lists removed paths relative to Root, slash-separated.
	Deleted []string `json:"deleted" yaml:"deleted"`

	Scanned        int           `json:"scanned" yaml:"scanned"`
	Survivors      int           `json:"survivors" yaml:"survivors"`
	Emitted        int           `json:"emitted" yaml:"emitted"`
	ReclaimedBytes int64         `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	Duration       time.Duration `json:"duration" yaml:"duration"`

	// JournalID identifies the run in the history journal, if recorded.
	JournalID string `json:"journal_id,omitempty" yaml:"journal_id,omitempty"`

	// Watching is set while revclean waits for manifest changes.
	Watching bool `json:"watching" yaml:"watching"`

	// Warnings holds non-fatal problems, such as unreadable directories.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewReport builds a Report from a finished filter pass.
func NewReport(root, manifestPath string, r *filter.Result) *Report {
	report := &Report{
		Root:     root,
		Manifest: manifestPath,
		Deleted:  []string{},
	}
	if r == nil {
		return report
	}

	report.DryRun = r.DryRun
	report.Scanned = r.Scanned
	report.Survivors = r.Survivors
	report.Emitted = r.Emitted
	report.ReclaimedBytes = r.ReclaimedBytes
	report.Duration = r.Elapsed

	for _, p := range r.Deleted {
		report.Deleted = append(report.Deleted, relativeTo(root, p))
	}
	sort.Strings(report.Deleted)
	return report
}

// relativeTo returns p relative to root when p lies below it.
func relativeTo(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return types.NormalizePath(p)
	}
	return types.NormalizePath(rel)
}

// Formatter renders a report.
type Formatter interface {
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered formatter names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
