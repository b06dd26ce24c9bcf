package index

import (
	"fmt"

	"github.com/pkg/errors"
)

// IndexDisabledError is returned by Query when the index priority is Error.
type IndexDisabledError struct {
	IndexName string
}

func (e *IndexDisabledError) Error() string {
	return fmt.Sprintf("index %q is disabled after crossing the write-error threshold", e.IndexName)
}

// IndexWriteFailedError wraps any failure inside Writer.Apply.
type IndexWriteFailedError struct {
	IndexName string
	Err       error
}

func (e *IndexWriteFailedError) Error() string {
	return fmt.Sprintf("index %q: write failed: %v", e.IndexName, e.Err)
}

func (e *IndexWriteFailedError) Unwrap() error { return e.Err }

// InvalidSpatialShapeError is raised during indexing when a document's
// spatial field cannot be parsed; the offending document is skipped, not the
// whole batch.
type InvalidSpatialShapeError struct {
	DocumentID string
	Err        error
}

func (e *InvalidSpatialShapeError) Error() string {
	return fmt.Sprintf("invalid spatial shape in document %q: %v", e.DocumentID, e.Err)
}

func (e *InvalidSpatialShapeError) Unwrap() error { return e.Err }

// FieldNotIndexedError is raised during query validation.
type FieldNotIndexedError struct {
	FieldName string
}

func (e *FieldNotIndexedError) Error() string {
	return fmt.Sprintf("the field %q is not indexed, cannot query on it", e.FieldName)
}

// ErrIntersectMalformed is raised when an INTERSECT query has fewer than two clauses.
var ErrIntersectMalformed = errors.New("query: INTERSECT requires at least two clauses")

// CorruptIndexError is raised during backup when the writer directory is
// found to be inconsistent; the backup is abandoned so restore forces a reset.
type CorruptIndexError struct {
	IndexName string
	Err       error
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("index %q is corrupt: %v", e.IndexName, e.Err)
}

func (e *CorruptIndexError) Unwrap() error { return e.Err }

// ErrConcurrencyConflict is returned by the (external) transactional store
// when a stats update races another writer; callers retry a bounded number
// of times before propagating it.
var ErrConcurrencyConflict = errors.New("storage: concurrency conflict")

// ErrAlreadyDisposed is returned by operations attempted after Index.Dispose.
var ErrAlreadyDisposed = errors.New("index: already disposed")
