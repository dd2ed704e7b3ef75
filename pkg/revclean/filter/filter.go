// Package filter classifies a stream of file-system entries against a
// revision manifest and deletes the stale ones in a single batch once the
// stream ends.
//
// A Filter is built once per invocation. Feed it entries in arrival order
// with Process and call Finish after the last one:
//
//	f, err := filter.New("dist/rev-manifest.json", filter.WithEmitChunks(true), filter.WithEmitter(send))
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    if err := f.Process(e); err != nil {
//	        return err
//	    }
//	}
//	result, err := f.Finish()
package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/revclean/pkg/revclean/logging"
	"github.com/jamesainslie/revclean/pkg/revclean/manifest"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// ErrFinished is returned when a Filter is used after Finish.
var ErrFinished = errors.New("filter already finished")

// StatusError reports a failed status check for a candidate entry.
type StatusError struct {
	Path string
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("checking %q: %v", e.Path, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Result summarizes one cleanup pass.
type Result struct {
	// Batch is every path handed to the deletion primitive, in arrival order.
	Batch []string `json:"batch"`

	// Deleted is what the deletion primitive reports as removed.
	Deleted []string `json:"deleted"`

	// Scanned is the number of entries processed.
	Scanned int `json:"scanned"`

	// Survivors is the number of entries kept.
	Survivors int `json:"survivors"`

	// Emitted is the number of survivors forwarded downstream.
	Emitted int `json:"emitted"`

	// ReclaimedBytes is the size of the batched files at check time.
	ReclaimedBytes int64 `json:"reclaimed_bytes"`

	// DryRun mirrors the delete options of the pass.
	DryRun bool `json:"dry_run"`

	// Elapsed runs from construction to the end of Finish.
	Elapsed time.Duration `json:"elapsed"`
}

// Filter is the stream stage of one cleanup invocation.
// It is not safe for concurrent use.
type Filter struct {
	cfg     settings
	allow   *manifest.AllowList
	started time.Time

	batch     []string
	bytes     int64
	scanned   int
	survivors int
	emitted   int
	finished  bool
}

// New loads the manifest and returns a Filter ready to process entries.
// A manifest that cannot be read or parsed fails construction.
func New(manifestPath string, opts ...Option) (*Filter, error) {
	started := time.Now()

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	allow, err := manifest.Load(manifestPath, manifest.PolicyFrom(cfg.opts))
	if err != nil {
		return nil, err
	}

	logging.Get("filter").Debug("manifest loaded", "path", manifestPath, "allowed", allow.Len())

	return &Filter{
		cfg:     cfg,
		allow:   allow,
		started: started,
		batch:   make([]string, 0),
	}, nil
}

// Options returns the resolved cleanup options.
func (f *Filter) Options() types.Options {
	return f.cfg.opts
}

// AllowList returns the allow-list built from the manifest.
func (f *Filter) AllowList() *manifest.AllowList {
	return f.allow
}

// Process classifies one entry. Regular files missing from the allow-list
// are batched for deletion; everything else survives and is forwarded when
// EmitChunks is enabled.
func (f *Filter) Process(e types.Entry) error {
	if f.finished {
		return ErrFinished
	}
	f.scanned++

	if !f.allow.Contains(e.Relative) {
		info, err := f.cfg.lstat(e.Path)
		if err != nil {
			return &StatusError{Path: e.Path, Err: err}
		}
		if info.Mode().IsRegular() {
			f.batch = append(f.batch, e.Path)
			f.bytes += info.Size()
			logging.Get("filter").Debug("batched", "path", e.Path)
			return nil
		}
	}

	f.survivors++
	if !f.cfg.opts.EmitChunks || f.cfg.emit == nil {
		return nil
	}
	if err := f.cfg.emit(e); err != nil {
		return err
	}
	f.emitted++
	return nil
}

// Finish hands the whole batch to the deletion primitive, even when empty,
// and ends the pass. Deletion errors are returned unchanged.
func (f *Filter) Finish() (*Result, error) {
	if f.finished {
		return nil, ErrFinished
	}
	f.finished = true

	batch := f.batch
	f.batch = nil

	deleted, err := f.cfg.deleter.Delete(batch, f.cfg.opts.Delete)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Batch:          batch,
		Deleted:        deleted,
		Scanned:        f.scanned,
		Survivors:      f.survivors,
		Emitted:        f.emitted,
		ReclaimedBytes: f.bytes,
		DryRun:         f.cfg.opts.Delete.DryRun,
		Elapsed:        time.Since(f.started),
	}

	logging.Get("filter").Info("cleanup finished",
		"scanned", result.Scanned,
		"batched", len(result.Batch),
		"deleted", len(result.Deleted),
		"dry_run", result.DryRun,
	)

	return result, nil
}

// Run processes entries in order and finishes the pass.
// Processing stops at the first error; the deletion primitive is not called.
func Run(f *Filter, entries []types.Entry) (*Result, error) {
	for _, e := range entries {
		if err := f.Process(e); err != nil {
			return nil, err
		}
	}
	return f.Finish()
}
