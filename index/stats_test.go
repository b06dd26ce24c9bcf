package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsQueueBounded(t *testing.T) {
	q := NewStatsQueue()
	for i := 0; i < MaxIndexingStats+5; i++ {
		q.Push(BatchStats{InputCount: i})
	}

	snap := q.Snapshot()
	assert.Len(t, snap, MaxIndexingStats)
	// Oldest entries should have been evicted, so the queue should start at
	// the input count corresponding to the eviction boundary.
	assert.Equal(t, 5, snap[0].InputCount)
	assert.Equal(t, MaxIndexingStats+4, snap[len(snap)-1].InputCount)
}

func TestActiveBatchSet(t *testing.T) {
	s := NewActiveBatchSet()
	now := time.Now()

	s.Start("batch-1", 10, now)
	assert.Equal(t, 1, s.Len())

	snap := s.Snapshot()
	assert.Equal(t, 10, snap["batch-1"].Count)

	s.Finish("batch-1")
	assert.Equal(t, 0, s.Len())
}
