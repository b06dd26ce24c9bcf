package index

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Operation classifies one batch's indexing work (source spec §3 "Indexing Stats").
type Operation int

const (
	OpMap Operation = iota
	OpReduce
	OpIgnore
)

func (o Operation) String() string {
	switch o {
	case OpMap:
		return "Map"
	case OpReduce:
		return "Reduce"
	default:
		return "Ignore"
	}
}

// BatchStats is one entry of the rolling Indexing Stats queue.
type BatchStats struct {
	InputCount       int
	Operation        Operation
	Started          time.Time
	Duration         time.Duration
	IndexingAttempts int
	IndexingErrors   int
	ReduceAttempts   int
	ReduceErrors     int
}

// MaxIndexingStats bounds the rolling stats queue (source spec §3).
const MaxIndexingStats = 25

// StatsQueue is the bounded, concurrent-safe rolling queue of BatchStats.
// A single mutex is enough here: entries are small, pushes are infrequent
// (once per batch), and correctness (never exceeding MaxIndexingStats, FIFO
// eviction) matters far more than avoiding contention on a lock that's held
// for a handful of nanoseconds.
type StatsQueue struct {
	mu      sync.Mutex
	entries []BatchStats
}

// NewStatsQueue creates an empty bounded stats queue.
func NewStatsQueue() *StatsQueue {
	return &StatsQueue{entries: make([]BatchStats, 0, MaxIndexingStats)}
}

// Push appends s, evicting the oldest entry if the queue is already full.
func (q *StatsQueue) Push(s BatchStats) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == MaxIndexingStats {
		copy(q.entries, q.entries[1:])
		q.entries = q.entries[:MaxIndexingStats-1]
	}
	q.entries = append(q.entries, s)
}

// Snapshot returns a copy of the current queue contents, oldest first.
func (q *StatsQueue) Snapshot() []BatchStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]BatchStats, len(q.entries))
	copy(out, q.entries)
	return out
}

// ActiveBatch describes one batch currently being applied, tracked in the
// concurrent currently_indexing map (source spec §5).
type ActiveBatch struct {
	Started time.Time
	Count   int
}

// ActiveBatchSet is the concurrent multi-producer multi-consumer
// "currently_indexing" map named in source spec §5, backed by xsync.MapOf
// so readers (status endpoints) never block writers (the single Apply call
// in flight for this index).
type ActiveBatchSet struct {
	m *xsync.MapOf[string, *ActiveBatch]
}

// NewActiveBatchSet creates an empty set.
func NewActiveBatchSet() *ActiveBatchSet {
	return &ActiveBatchSet{m: xsync.NewMapOf[string, *ActiveBatch]()}
}

// Start records batchID as in progress.
func (s *ActiveBatchSet) Start(batchID string, count int, now time.Time) {
	s.m.Store(batchID, &ActiveBatch{Started: now, Count: count})
}

// Finish removes batchID from the set.
func (s *ActiveBatchSet) Finish(batchID string) {
	s.m.Delete(batchID)
}

// Len reports how many batches are currently in flight.
func (s *ActiveBatchSet) Len() int {
	return s.m.Size()
}

// Snapshot returns a copy of all currently active batches, keyed by batch ID.
func (s *ActiveBatchSet) Snapshot() map[string]ActiveBatch {
	out := make(map[string]ActiveBatch, s.m.Size())
	s.m.Range(func(key string, value *ActiveBatch) bool {
		out[key] = *value
		return true
	})
	return out
}
