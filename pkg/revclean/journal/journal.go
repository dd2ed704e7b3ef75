package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a run record doesn't exist.
var ErrNotFound = errors.New("journal record not found")

// Journal wraps Badger for run history.
type Journal struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a journal in dir.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores rec, assigning an ID and timestamp when they are unset.
// It returns the stored record.
func (j *Journal) Append(rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.now()
	}
	rec.Timestamp = rec.Timestamp.UTC()

	value, err := rec.encode()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(rec.Timestamp, rec.ID), value)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first. A limit of 0 or less returns all.
func (j *Journal) List(limit int) ([]Record, error) {
	records := []Record{}

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past every record.
		seek := append([]byte(keyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := it.Item().Value(rec.decode); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing journal: %w", err)
	}
	return records, nil
}

// Get retrieves a record by ID or unique ID prefix.
func (j *Journal) Get(id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("record ID cannot be empty")
	}

	var found *Record
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			_, keyID, err := parseKey(it.Item().Key())
			if err != nil || !strings.HasPrefix(keyID, id) {
				continue
			}
			if found != nil {
				return fmt.Errorf("ambiguous record ID prefix %q", id)
			}
			var rec Record
			if err := it.Item().Value(rec.decode); err != nil {
				return err
			}
			found = &rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// Prune removes records older than retention and returns how many it removed.
func (j *Journal) Prune(retention time.Duration) (int, error) {
	cutoff := j.now().Add(-retention)

	var stale [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ts, _, err := parseKey(it.Item().Key())
			if err != nil {
				continue
			}
			if !ts.Before(cutoff) {
				// Keys are chronological; everything after is newer.
				break
			}
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning journal: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("pruning journal: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return len(stale), nil
}
