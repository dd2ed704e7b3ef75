// Package journal keeps a history of cleanup runs in a Badger database.
package journal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// keyPrefix namespaces run records.
const keyPrefix = "run/"

// Record describes one cleanup run.
type Record struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Root           string    `json:"root"`
	Manifest       string    `json:"manifest"`
	DryRun         bool      `json:"dry_run"`
	Scanned        int       `json:"scanned"`
	Survivors      int       `json:"survivors"`
	Deleted        []string  `json:"deleted"`
	ReclaimedBytes int64     `json:"reclaimed_bytes"`
}

// encode serializes the record.
func (r *Record) encode() ([]byte, error) {
	return json.Marshal(r)
}

// decode deserializes data into the record.
func (r *Record) decode(data []byte) error {
	return json.Unmarshal(data, r)
}

// makeKey builds run/<zero-padded unix nanos>/<id> so that key order is
// chronological.
func makeKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, ts.UnixNano(), id))
}

// parseKey extracts the timestamp and ID from a record key.
func parseKey(key []byte) (time.Time, string, error) {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	nanos, id, ok := strings.Cut(rest, "/")
	if !ok {
		return time.Time{}, "", fmt.Errorf("malformed journal key %q", key)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed journal key %q: %w", key, err)
	}
	return time.Unix(0, n).UTC(), id, nil
}
