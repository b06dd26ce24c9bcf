package index

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// WriteErrorRecord is a persisted counterpart of ErrorRecord: the source
// spec's bounded in-memory error queue is kept as-is (see writer.go), but
// every record is also durably logged here so operators can inspect write
// failures after a process restart, matching how the pack's chotki uses
// pebble as its durable log (SPEC_FULL.md §"Supplemented features").
type WriteErrorRecord struct {
	IndexName string    `json:"index"`
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorLog is a small embedded KV store of WriteErrorRecord entries, one
// pebble database per node (shared across all indexes, keyed by
// index+timestamp so range scans stay ordered per index).
type ErrorLog struct {
	db *pebble.DB
}

// OpenErrorLog opens (or creates) the durable write-error log at path.
func OpenErrorLog(path string) (*ErrorLog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "open error log")
	}
	return &ErrorLog{db: db}, nil
}

func errorLogKey(indexName string, ts time.Time) []byte {
	// A fixed-width UTC timestamp sorts lexicographically the same as
	// chronologically, so a prefix range scan over "<index>\x00" returns
	// records oldest-first.
	return []byte(indexName + "\x00" + ts.UTC().Format("20060102T150405.000000000"))
}

// Append durably records one write failure.
func (l *ErrorLog) Append(rec WriteErrorRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal write-error record")
	}
	return l.db.Set(errorLogKey(rec.IndexName, rec.Timestamp), data, pebble.NoSync)
}

// Recent returns every WriteErrorRecord logged for indexName.
func (l *ErrorLog) Recent(indexName string) ([]WriteErrorRecord, error) {
	prefix := []byte(indexName + "\x00")
	upper := append(append([]byte{}, prefix...), 0xff)

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, errors.Wrap(err, "open iterator")
	}
	defer iter.Close()

	var out []WriteErrorRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec WriteErrorRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, errors.Wrap(err, "unmarshal write-error record")
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// Close closes the underlying pebble database.
func (l *ErrorLog) Close() error { return l.db.Close() }
