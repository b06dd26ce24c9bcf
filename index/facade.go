package index

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ravendb/ravenidx/index/vfs"
)

// WriteErrorThreshold is the number of consecutive failed commits that moves
// an Index's priority to Error permanently (source spec §5 "Error
// quarantine"): "ten consecutive write failures move the index to the
// Error priority, a one-way transition".
const WriteErrorThreshold = 10

// Index is the façade described in source spec §4 / §9 "Index façade": it
// ties together the Writer, the Searcher Holder, and the Analyzer Stack, and
// owns LastIndexTime, LastQueryTime, the write-error counter, priority, and
// the extensions registry.
type Index struct {
	def    *Definition
	cfg    Config
	clock  Clock
	log    Logger

	writer   *Writer
	holder   *Holder
	triggers *TriggerRegistry
	priority *priorityState
	stats    *StatsQueue
	active   *ActiveBatchSet

	writeMu sync.Mutex
	metrics *Metrics

	lastIndexTime atomic.Pointer[time.Time]
	lastQueryTime atomic.Pointer[time.Time]

	disposed atomic.Bool

	consecutiveFailures atomic.Int32
}

// NewIndex opens def over dir and publishes its first Searcher State.
func NewIndex(def *Definition, dir vfs.Dir, cfg Config, triggers *TriggerRegistry, clock Clock, log Logger) (*Index, error) {
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = DiscardLogger
	}
	if triggers == nil {
		triggers = &TriggerRegistry{}
	}

	analyzers := &AnalyzerStack{Generators: triggers.Analyzers}
	w, err := NewWriter(def, dir, cfg, analyzers, clock, log)
	if err != nil {
		return nil, errors.Wrapf(err, "open writer for index %q", def.Name)
	}

	idx := &Index{
		def:      def,
		cfg:      cfg,
		clock:    clock,
		log:      log,
		writer:   w,
		holder:   NewHolder(log),
		triggers: triggers,
		priority: newPriorityState(PriorityNormal),
		stats:    NewStatsQueue(),
		active:   NewActiveBatchSet(),
	}
	idx.writer.SetRetireHook(idx.attachRetiredCloser)
	idx.publishSearcher()
	return idx, nil
}

// attachRetiredCloser arranges for closeOld to run once the currently
// published SearcherState is no longer referenced by any in-flight query, so
// a memory-to-disk materialization never closes a bleve.Index a reader is
// still iterating (source spec §4.2, Testable Property #3: searcher
// isolation).
func (idx *Index) attachRetiredCloser(closeOld func()) {
	if state := idx.holder.Current(); state != nil {
		state.SetCloser(closeOld)
		return
	}
	closeOld()
}

func (idx *Index) publishSearcher() {
	state := newSearcherState(idx.writer.Index(), idx.writer.StoredFieldsSnapshot(), idx.writer.Generation())
	idx.holder.SetCurrent(state, false)
}

// IndexDocuments applies batch through the write lock, updates LastIndexTime
// and the Indexing Stats queue, fans the change out to registered update
// triggers, and swaps the Searcher Holder if anything changed (source spec
// §2, §4.1, §4.2).
func (idx *Index) IndexDocuments(batchID string, batch Batch) (ItemsInfo, error) {
	if idx.disposed.Load() {
		return ItemsInfo{}, ErrAlreadyDisposed
	}
	if idx.priority.Get() == PriorityError {
		return ItemsInfo{}, &IndexDisabledError{IndexName: idx.def.Name}
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	started := idx.clock.Now()
	idx.active.Start(batchID, len(batch.Puts)+len(batch.Deletes), started)
	defer idx.active.Finish(batchID)

	// LastIndexTime is updated before the work starts, and again after
	// (source spec §8), so a stuck or failed batch still shows an operator
	// that indexing was attempted rather than leaving the previous
	// successful timestamp looking current.
	idx.lastIndexTime.Store(&started)

	info, err := idx.writer.Apply(batch)

	if idx.metrics != nil {
		idx.metrics.Observe(idx.def.Name, idx.clock.Now().Sub(started).Seconds(), err)
	}

	bs := BatchStats{
		InputCount: len(batch.Puts) + len(batch.Deletes),
		Operation:  OpMap,
		Started:    started,
		Duration:   idx.clock.Now().Sub(started),
	}
	if idx.def.IsMapReduce {
		bs.Operation = OpReduce
	}

	if err != nil {
		bs.IndexingErrors = len(batch.Puts)
		idx.stats.Push(bs)
		idx.onWriteFailure()
		return ItemsInfo{}, err
	}

	bs.IndexingAttempts = len(batch.Puts)
	idx.stats.Push(bs)
	idx.consecutiveFailures.Store(0)

	now := idx.clock.Now()
	idx.lastIndexTime.Store(&now)

	for i := range batch.Puts {
		idx.triggers.NotifyIndexed(&batch.Puts[i])
	}
	for _, key := range batch.Deletes {
		idx.triggers.NotifyDeleted(key)
	}

	if info.NeedsSearcherRefresh() {
		idx.publishSearcher()
	}

	return info, nil
}

// Remove deletes the given document keys (source spec §4.1: delete is a
// batch with only Deletes populated).
func (idx *Index) Remove(batchID string, keys []string, etag Etag) (ItemsInfo, error) {
	return idx.IndexDocuments(batchID, Batch{Deletes: keys, HighestEtag: etag})
}

// onWriteFailure increments the consecutive-failure counter and, once it
// crosses WriteErrorThreshold, latches the priority at Error — a one-way
// transition the source spec calls "error quarantine" (source spec §5).
func (idx *Index) onWriteFailure() {
	n := idx.consecutiveFailures.Add(1)
	if n >= WriteErrorThreshold {
		if idx.priority.ForceError() {
			idx.log.Warnf("index %q crossed %d consecutive write failures, latching priority to Error", idx.def.Name, WriteErrorThreshold)
			if idx.metrics != nil {
				idx.metrics.ObservePriority(idx.def.Name, PriorityError)
			}
		}
	}
}

// Flush forces an explicit flush of the current writer state.
func (idx *Index) Flush() error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	return idx.writer.flush()
}

// MergeSegments calls Writer.Optimize under the write lock (source spec §4.1
// "optimize"); see Optimize for what that does.
func (idx *Index) MergeSegments() error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	return idx.writer.Optimize()
}

// SetErrorLog attaches the durable write-error log to this index's writer.
func (idx *Index) SetErrorLog(l *ErrorLog) { idx.writer.SetErrorLog(l) }

// SetMetrics attaches a Metrics collector family; subsequent commits,
// priority changes, and backups report through it. Passing nil disables
// reporting.
func (idx *Index) SetMetrics(m *Metrics) { idx.metrics = m }

// Priority returns the current indexing priority.
func (idx *Index) Priority() Priority { return idx.priority.Get() }

// SetPriority requests a priority change; ignored once latched at Error.
func (idx *Index) SetPriority(p Priority) bool {
	changed := idx.priority.Set(p)
	if changed && idx.metrics != nil {
		idx.metrics.ObservePriority(idx.def.Name, p)
	}
	return changed
}

// Stats returns a snapshot of the rolling Indexing Stats queue.
func (idx *Index) Stats() []BatchStats { return idx.stats.Snapshot() }

// ActiveBatches returns a snapshot of batches currently being applied.
func (idx *Index) ActiveBatches() map[string]ActiveBatch { return idx.active.Snapshot() }

// LastIndexTime returns the time of the most recent IndexDocuments attempt
// (set when the attempt starts, and again when it succeeds), or the zero
// Time if none has happened yet.
func (idx *Index) LastIndexTime() time.Time {
	if t := idx.lastIndexTime.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// LastQueryTime returns the timestamp of the last query served, or the zero
// Time if none has happened yet.
func (idx *Index) LastQueryTime() time.Time {
	if t := idx.lastQueryTime.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// markQueried updates LastQueryTime; called by the query pipeline.
func (idx *Index) markQueried() {
	now := idx.clock.Now()
	idx.lastQueryTime.Store(&now)
}

// Definition returns the index's immutable definition.
func (idx *Index) Definition() *Definition { return idx.def }

// Holder exposes the Searcher Holder for the query pipeline.
func (idx *Index) Holder() *Holder { return idx.holder }

// Writer exposes the Writer for the backup pipeline.
func (idx *Index) Writer() *Writer { return idx.writer }

// Generation returns the current commit generation.
func (idx *Index) Generation() uint64 { return idx.writer.Generation() }

// Dispose releases the writer and waits (bounded) for the previous searcher
// generation to drain before returning (source spec §4.2, §5 "Dispose").
func (idx *Index) Dispose() error {
	if !idx.disposed.CompareAndSwap(false, true) {
		return nil
	}
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	idx.holder.SetCurrent(nil, true)
	return idx.writer.Close()
}

// Disposed reports whether Dispose has already run.
func (idx *Index) Disposed() bool { return idx.disposed.Load() }
