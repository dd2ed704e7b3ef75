package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/jamesainslie/revclean/cmd/revclean/tui"
	"github.com/jamesainslie/revclean/pkg/revclean/config"
	"github.com/jamesainslie/revclean/pkg/revclean/deleter"
	"github.com/jamesainslie/revclean/pkg/revclean/filter"
	"github.com/jamesainslie/revclean/pkg/revclean/journal"
	"github.com/jamesainslie/revclean/pkg/revclean/logging"
	"github.com/jamesainslie/revclean/pkg/revclean/manifest"
	"github.com/jamesainslie/revclean/pkg/revclean/output"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
	"github.com/jamesainslie/revclean/pkg/revclean/walker"
	"github.com/jamesainslie/revclean/pkg/revclean/watch"
	"github.com/spf13/cobra"
)

// cleanRun holds the resolved inputs of a cleanup and runs it on demand.
type cleanRun struct {
	root     string
	manifest string
	opts     types.Options
	exclude  []string
	format   string
	quiet    bool

	// report receives the formatted report; emit receives surviving paths.
	report io.Writer
	emit   io.Writer
	notice io.Writer

	deleter deleter.Deleter
	journal *journal.Journal
}

func (a *app) runClean(cmd *cobra.Command, args []string) error {
	logger := logging.Get("cli")

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("cannot resolve %q: %w", dir, err)
	}

	manifestPath := a.cfg.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(root, manifestPath)
	}

	if a.listManifest {
		return listManifest(cmd.OutOrStdout(), manifestPath)
	}

	if _, err := output.Get(a.format); err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	opts := a.cfg.Options()
	if opts.Delete.PruneEmptyDirs && opts.Delete.Root == "" {
		opts.Delete.Root = root
	}

	run := &cleanRun{
		root:     root,
		manifest: manifestPath,
		opts:     opts,
		exclude:  a.cfg.Exclude,
		format:   a.format,
		quiet:    a.quiet,
		report:   cmd.OutOrStdout(),
		emit:     cmd.OutOrStdout(),
		notice:   cmd.ErrOrStderr(),
		deleter:  deleter.NewOSDeleter(),
	}
	if opts.EmitChunks {
		run.report = cmd.ErrOrStderr()
	}
	if a.confirm {
		run.deleter = &deleter.Confirming{
			Next:    run.deleter,
			Confirm: tui.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr()),
		}
	}

	if a.cfg.Journal.Enabled && !a.noJournal {
		j, err := openJournal(a.cfg)
		if err != nil {
			logger.Warn("run history unavailable", "error", err)
		} else {
			defer j.Close()
			run.journal = j
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run.once(ctx, a.watch); err != nil {
		if !a.watch {
			return err
		}
		// The manifest may not have been built yet; keep waiting for it.
		fmt.Fprintf(run.notice, "Error: %v\n", err)
	}
	if !a.watch {
		return nil
	}

	w, err := watch.New(manifestPath, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching manifest", "path", manifestPath)
	return w.Run(ctx, func() error {
		return run.once(ctx, true)
	})
}

// once performs a single cleanup pass and writes its report.
func (r *cleanRun) once(ctx context.Context, watching bool) error {
	walked, err := walker.Walk(ctx, r.root, walker.Options{Exclude: r.exclude})
	if err != nil {
		return fmt.Errorf("listing %s: %w", r.root, err)
	}

	filterOpts := []filter.Option{
		filter.WithOptions(r.opts),
		filter.WithDeleter(r.deleter),
	}
	if r.opts.EmitChunks {
		filterOpts = append(filterOpts, filter.WithEmitter(func(e types.Entry) error {
			_, err := fmt.Fprintln(r.emit, types.NormalizePath(e.Relative))
			return err
		}))
	}

	f, err := filter.New(r.manifest, filterOpts...)
	if err != nil {
		return err
	}
	result, err := filter.Run(f, walked.Entries)
	if errors.Is(err, deleter.ErrDeclined) {
		fmt.Fprintln(r.notice, "Cancelled; nothing was deleted.")
		return nil
	}
	if err != nil {
		return err
	}

	report := output.NewReport(r.root, r.manifest, result)
	report.Watching = watching
	for _, we := range walked.Errors {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", we.Path, we.Err))
	}

	if r.journal != nil {
		rec, err := r.journal.Append(journal.Record{
			Root:           r.root,
			Manifest:       r.manifest,
			DryRun:         result.DryRun,
			Scanned:        result.Scanned,
			Survivors:      result.Survivors,
			Deleted:        result.Deleted,
			ReclaimedBytes: result.ReclaimedBytes,
		})
		if err != nil {
			logging.Get("cli").Warn("failed to record run", "error", err)
		} else {
			report.JournalID = rec.ID
		}
	}

	if r.quiet {
		return nil
	}

	formatter, err := output.Get(r.format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	_, err = r.report.Write(buf.Bytes())
	return err
}

// openJournal opens the configured journal and drops expired records.
func openJournal(cfg *config.Config) (*journal.Journal, error) {
	path := cfg.Journal.Path
	if path == "" {
		path = config.DefaultJournalPath()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return nil, err
	}

	if cfg.Journal.RetentionDays > 0 {
		if n, err := j.Prune(cfg.Retention()); err != nil {
			logging.Get("cli").Warn("failed to prune run history", "error", err)
		} else if n > 0 {
			logging.Get("cli").Debug("pruned run history", "removed", n)
		}
	}
	return j, nil
}

// listManifest prints the manifest entries sorted by original path.
func listManifest(w io.Writer, path string) error {
	entries, err := manifest.ReadEntries(path)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORIGINAL\tREVISED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Original, e.Revised)
	}
	return tw.Flush()
}
