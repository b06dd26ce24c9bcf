package index

import (
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// SearcherState is the tuple described in source spec §3 "Searcher State":
// an inverted-index reader, a materialized array of per-document
// stored-fields objects, a generation counter, and a strong-reference
// counter. It is created atomically when the Writer commits and discarded
// once its refcount drops to zero and it is no longer the published state.
type SearcherState struct {
	idx          bleve.Index
	storedFields map[string]map[string]interface{}
	generation   uint64

	refcount atomic.Int32
	released atomic.Bool

	mu        sync.Mutex
	closer    func()
	onRelease func()
}

func newSearcherState(idx bleve.Index, storedFields map[string]map[string]interface{}, generation uint64) *SearcherState {
	s := &SearcherState{idx: idx, storedFields: storedFields, generation: generation}
	s.refcount.Store(1)
	return s
}

// Index returns the bleve index to search against.
func (s *SearcherState) Index() bleve.Index { return s.idx }

// Generation returns the commit generation this state was published for.
func (s *SearcherState) Generation() uint64 { return s.generation }

// StoredFields returns the materialized stored-fields array for fast
// projection without a second round-trip into the index.
func (s *SearcherState) StoredFields() map[string]map[string]interface{} { return s.storedFields }

// acquire increments the refcount. Must be paired with a release.
func (s *SearcherState) acquire() { s.refcount.Add(1) }

// SetCloser installs a resource-release callback invoked exactly once, when
// this state's refcount reaches zero. Used to defer closing a retired
// bleve.Index/Dir (from a memory-to-disk materialization) until every reader
// that acquired this generation has released it.
func (s *SearcherState) SetCloser(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closer = f
}

// SetOnRelease installs a notification callback invoked exactly once, when
// this state's refcount reaches zero. Used by Dispose to wait for the
// previous generation to drain.
func (s *SearcherState) SetOnRelease(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = f
}

// release decrements the refcount, disposing of any retired resources and
// notifying any waiter exactly once when it reaches zero.
func (s *SearcherState) release() {
	if s.refcount.Add(-1) == 0 {
		if s.released.CompareAndSwap(false, true) {
			s.mu.Lock()
			closer, onRelease := s.closer, s.onRelease
			s.mu.Unlock()
			if closer != nil {
				closer()
			}
			if onRelease != nil {
				onRelease()
			}
		}
	}
}
