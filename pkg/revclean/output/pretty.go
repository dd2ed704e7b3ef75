package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled report for terminals.
type PrettyFormatter struct{}

// Format writes the report to w.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatDeleted(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("  " + warning))
			w.WriteString("\n")
		}
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	lines := []string{
		LabelStyle.Render("Root:") + " " + ValueStyle.Render(r.Root),
		LabelStyle.Render("Manifest:") + " " + ValueStyle.Render(r.Manifest),
	}

	info := []string{
		LabelStyle.Render("Scanned:") + " " +
			ValueStyle.Render(fmt.Sprintf("%d entries in %s", r.Scanned, formatDuration(r.Duration))),
		LabelStyle.Render("Kept:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.Survivors)),
	}
	if r.Watching {
		info = append(info, SuccessStyle.Render("watching manifest"))
	}
	lines = append(lines, strings.Join(info, "  "))

	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: nothing was removed"))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatDeleted(r *Report) string {
	if len(r.Deleted) == 0 {
		return MutedStyle.Render("  Nothing to clean") + "\n"
	}

	verb := "DELETED"
	if r.DryRun {
		verb = "WOULD DELETE"
	}

	var sb strings.Builder
	sb.WriteString("  " + TableHeaderStyle.Render(verb) + "\n")
	for _, p := range r.Deleted {
		sb.WriteString("  " + DangerStyle.Render("-") + " " + PathStyle.Render(p) + "\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	parts := []string{
		LabelStyle.Render("Removed:") + " " + ValueStyle.Render(humanize.Comma(int64(len(r.Deleted)))),
		LabelStyle.Render("Reclaimed:") + " " + SizeStyle.Render(humanize.IBytes(uint64(r.ReclaimedBytes))),
	}
	if r.JournalID != "" {
		parts = append(parts, MutedStyle.Render("run "+shortID(r.JournalID)))
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatDuration renders short durations in milliseconds and longer ones
// rounded to a tenth of a second.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// shortID trims a journal ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
