package output

import (
	"bytes"
	"encoding/json"
)

// document is the structure shared by the JSON and YAML formatters.
type document struct {
	Deleted []string `json:"deleted" yaml:"deleted"`
	Stats   docStats `json:"stats" yaml:"stats"`
	Meta    docMeta  `json:"meta" yaml:"meta"`
}

type docStats struct {
	Scanned        int    `json:"scanned" yaml:"scanned"`
	Survivors      int    `json:"survivors" yaml:"survivors"`
	Emitted        int    `json:"emitted" yaml:"emitted"`
	Removed        int    `json:"removed" yaml:"removed"`
	ReclaimedBytes int64  `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	Duration       string `json:"duration" yaml:"duration"`
}

type docMeta struct {
	Root      string   `json:"root" yaml:"root"`
	Manifest  string   `json:"manifest" yaml:"manifest"`
	DryRun    bool     `json:"dry_run" yaml:"dry_run"`
	Watching  bool     `json:"watching" yaml:"watching"`
	JournalID string   `json:"journal_id,omitempty" yaml:"journal_id,omitempty"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func buildDocument(r *Report) document {
	deleted := r.Deleted
	if deleted == nil {
		deleted = []string{}
	}
	return document{
		Deleted: deleted,
		Stats: docStats{
			Scanned:        r.Scanned,
			Survivors:      r.Survivors,
			Emitted:        r.Emitted,
			Removed:        len(deleted),
			ReclaimedBytes: r.ReclaimedBytes,
			Duration:       r.Duration.String(),
		},
		Meta: docMeta{
			Root:      r.Root,
			Manifest:  r.Manifest,
			DryRun:    r.DryRun,
			Watching:  r.Watching,
			JournalID: r.JournalID,
			Warnings:  r.Warnings,
		},
	}
}

// JSONFormatter writes the report as one indented JSON object.
type JSONFormatter struct{}

// Format writes the report to w.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
