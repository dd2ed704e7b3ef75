package deleter

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// ErrDeclined is returned when the user refuses a deletion batch.
var ErrDeclined = errors.New("deletion declined")

// ConfirmFunc asks whether paths may be deleted.
type ConfirmFunc func(paths []string, opts types.DeleteOptions) (bool, error)

// Confirming asks before handing a batch to Next. Empty batches and dry
// runs pass straight through.
type Confirming struct {
	Next    Deleter
	Confirm ConfirmFunc
}

// Delete implements Deleter.
func (c *Confirming) Delete(paths []string, opts types.DeleteOptions) ([]string, error) {
	if len(paths) == 0 || opts.DryRun {
		return c.Next.Delete(paths, opts)
	}

	ok, err := c.Confirm(paths, opts)
	if err != nil {
		return nil, fmt.Errorf("confirming deletion: %w", err)
	}
	if !ok {
		return nil, ErrDeclined
	}
	return c.Next.Delete(paths, opts)
}

var _ Deleter = (*Confirming)(nil)
