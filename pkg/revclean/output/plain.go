package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes one tab-separated line per removed path, for scripts.
type PlainFormatter struct{}

// Format writes the report to w.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	action := "deleted"
	if r.DryRun {
		action = "would-delete"
	}
	for _, p := range r.Deleted {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", action, p); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
