package deleter

import (
	"sync"

	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// Call is one recorded invocation of Recorder.Delete.
type Call struct {
	Paths   []string
	Options types.DeleteOptions
}

// Recorder implements Deleter without touching the file system.
// It records every call so tests can prove what would have been removed.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// Err, when set, is returned from every Delete call.
	Err error
}

// Delete records the call and reports every path as deleted.
func (r *Recorder) Delete(paths []string, opts types.DeleteOptions) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := append([]string(nil), paths...)
	r.calls = append(r.calls, Call{Paths: batch, Options: opts})
	if r.Err != nil {
		return nil, r.Err
	}
	return batch, nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ensure Recorder implements Deleter.
var _ Deleter = (*Recorder)(nil)
