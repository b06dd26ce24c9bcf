package index

import (
	"io"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/pkg/errors"

	"github.com/ravendb/ravenidx/index/vfs"
)

// ErrorRecord is a structured per-document failure captured during Apply
// (source spec §4.1 "Failure policy"): "adds a structured per-index error
// record (indexId, key, message, source)".
type ErrorRecord struct {
	IndexName string
	Key       string
	Message   string
	Source    string
	Timestamp time.Time
}

const maxInMemoryErrorRecords = 100

// Writer is the single-writer-per-index owner of the Segment Directory
// (source spec §4.1). It buffers, commits, and optionally materializes a
// memory-backed directory to disk.
type Writer struct {
	def   *Definition
	cfg   Config
	clock Clock
	log   Logger

	mu        sync.Mutex
	dir       vfs.Dir
	idx       bleve.Index
	retention *vfs.RetentionPolicy
	generation uint64

	// storedFields mirrors the current committed content, keyed by document
	// ID. It both backs fast projection (Searcher State's "materialized
	// array of per-document stored-fields objects") and gives us a source to
	// re-index from when materializing a memory directory to disk, since
	// bleve does not expose a raw byte-level segment copy across two
	// independently opened index instances.
	storedFields map[string]map[string]interface{}

	writeErrorCount int
	errors          []ErrorRecord
	errorLog        *ErrorLog

	analyzers  *AnalyzerStack
	retireHook func(closeOld func())
}

// SetRetireHook installs the callback materializeToDisk uses to hand off
// closing a retired bleve.Index/Dir, instead of closing them itself. A
// SearcherState published before the swap may still wrap the retired index;
// closing it unconditionally would break an in-flight query mid-iteration
// (source spec §4.2 "Cyclic ownership"). The Index façade wires this to defer
// the close until that SearcherState's refcount reaches zero.
func (w *Writer) SetRetireHook(hook func(closeOld func())) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.retireHook = hook
}

// SetErrorLog attaches the durable write-error log; recorded errors are
// appended there in addition to the bounded in-memory queue.
func (w *Writer) SetErrorLog(l *ErrorLog) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorLog = l
}

// NewWriter opens (or creates) the writer for def over dir.
func NewWriter(def *Definition, dir vfs.Dir, cfg Config, analyzers *AnalyzerStack, clock Clock, log Logger) (*Writer, error) {
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = DiscardLogger
	}
	if analyzers == nil {
		analyzers = &AnalyzerStack{}
	}

	idx, err := openOrCreateBleveIndex(dir, def, analyzers)
	if err != nil {
		return nil, errors.Wrap(err, "open index")
	}

	w := &Writer{
		def:          def,
		cfg:          cfg,
		clock:        clock,
		log:          log,
		dir:          dir,
		idx:          idx,
		retention:    vfs.NewRetentionPolicy(),
		storedFields: make(map[string]map[string]interface{}),
		analyzers:    analyzers,
	}
	return w, nil
}

func openOrCreateBleveIndex(dir vfs.Dir, def *Definition, analyzers *AnalyzerStack) (bleve.Index, error) {
	im := analyzers.Build(def, false)
	if !dir.OnDisk() {
		return bleve.NewMemOnly(im)
	}

	// scorch writes its own root.bolt and *.zap segment files flat into the
	// given path (no nested store directory), so opening it directly at the
	// Segment Directory's own path means ListFiles/Backup see and copy those
	// files opaquely, the same way they already see segments.gen and
	// index.version. A nested "bleve" subdirectory would be invisible to
	// diskDir.ListFiles (which skips subdirectories), so Backup would only
	// ever copy the two manifest files and silently drop the real index data.
	path := dir.Path()
	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, err
	}
	return bleve.NewUsing(path, im, "scorch", "scorch", nil)
}

// Apply applies one Batch to the index: adds, replaces, and removes entries,
// then commits (source spec §4.1 "apply").
func (w *Writer) Apply(batch Batch) (ItemsInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lock, err := w.dir.Lock()
	if err != nil {
		return ItemsInfo{}, errors.Wrap(err, "acquire writing-to-index.lock")
	}
	defer lock.Close()

	bleveBatch := w.idx.NewBatch()
	changed := 0

	for i := range batch.Puts {
		entry := &batch.Puts[i]
		if shape, ok := entry.Fields["__spatial"]; ok {
			if err := validateSpatialShape(shape); err != nil {
				w.recordError(entry.DocumentID, err.Error(), "spatial")
				continue
			}
		}
		doc := entry.AsStoredDocument()
		if err := bleveBatch.Index(entry.DocumentID, doc); err != nil {
			w.recordError(entry.DocumentID, err.Error(), "writer")
			continue
		}
		w.storedFields[entry.DocumentID] = doc
		changed++
	}

	for _, key := range batch.Deletes {
		bleveBatch.Delete(key)
		delete(w.storedFields, key)
		changed++
	}

	if err := w.idx.Batch(bleveBatch); err != nil {
		w.writeErrorCount++
		w.recordError("", err.Error(), "commit")
		return ItemsInfo{}, &IndexWriteFailedError{IndexName: w.def.Name, Err: err}
	}

	w.writeErrorCount = 0
	w.generation++

	if err := w.writeManifest(batch.HighestEtag); err != nil {
		return ItemsInfo{}, errors.Wrap(err, "write commit manifest")
	}

	if w.shouldFlush() {
		if err := w.flush(); err != nil {
			w.log.Warnf("flush after commit failed: %v", err)
		}
	}

	if err := w.maybeMaterializeToDisk(); err != nil {
		w.log.Warnf("materialize to disk failed: %v", err)
	}

	return ItemsInfo{ChangedDocs: changed, HighestEtag: batch.HighestEtag}, nil
}

func validateSpatialShape(shape interface{}) error {
	switch v := shape.(type) {
	case string:
		if v == "" {
			return errors.New("empty spatial shape")
		}
	case nil:
		return errors.New("missing spatial shape")
	default:
		_ = v
	}
	return nil
}

func (w *Writer) recordError(key, message, source string) {
	rec := ErrorRecord{
		IndexName: w.def.Name,
		Key:       key,
		Message:   message,
		Source:    source,
		Timestamp: w.clock.Now(),
	}
	w.errors = append(w.errors, rec)
	if len(w.errors) > maxInMemoryErrorRecords {
		w.errors = w.errors[len(w.errors)-maxInMemoryErrorRecords:]
	}
	if w.errorLog != nil {
		if err := w.errorLog.Append(WriteErrorRecord(rec)); err != nil {
			w.log.Warnf("failed to persist write-error record for %q: %v", w.def.Name, err)
		}
	}
}

// WriteErrorCount returns the current (reset-on-success) write-error counter.
func (w *Writer) WriteErrorCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErrorCount
}

// Errors returns a copy of the recent structured error records.
func (w *Writer) Errors() []ErrorRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ErrorRecord, len(w.errors))
	copy(out, w.errors)
	return out
}

// writeManifest writes segments.gen and index.version last, after the
// underlying batch is durably committed, so a reader can never observe a
// directory with a manifest pointing at a partially-written commit (source
// spec §4.1 invariant).
func (w *Writer) writeManifest(etag Etag) error {
	names, err := w.dir.ListFiles()
	if err != nil {
		return err
	}
	if err := vfs.WriteFile(w.dir, vfs.ManifestFileName, func(wr io.Writer) error {
		for _, n := range names {
			if _, err := wr.Write([]byte(n + "\n")); err != nil {
				return err
			}
		}
		_, err := wr.Write([]byte("etag:" + etag.String() + "\n"))
		return err
	}); err != nil {
		return err
	}
	return vfs.WriteFile(w.dir, vfs.VersionFileName, func(wr io.Writer) error {
		_, err := wr.Write([]byte("1\n"))
		return err
	})
}

func (w *Writer) shouldFlush() bool {
	size, err := vfs.TotalSize(w.dir)
	if err != nil {
		return false
	}
	threshold := int64(w.cfg.FlushIndexToDiskSizeMB) * 1024 * 1024
	return threshold > 0 && size >= threshold
}

func (w *Writer) flush() error {
	// bleve's scorch backend persists every Batch() call immediately, so an
	// explicit flush has nothing further to force to stable storage; this
	// only refreshes the commit manifest so it reflects the post-flush file
	// listing, matching the source spec's "an additional explicit flush is
	// performed" step.
	return w.writeManifest(Etag{})
}

// maybeMaterializeToDisk copies a memory-backed directory to disk once it
// grows past the configured threshold, or if the caller forces it (source
// spec §4.1 "materializes the memory directory to disk").
func (w *Writer) maybeMaterializeToDisk() error {
	if w.dir.OnDisk() {
		return nil
	}
	if !w.cfg.RunInMemory {
		size, err := vfs.TotalSize(w.dir)
		if err != nil {
			return err
		}
		if w.cfg.ForceWriteToDisk || (w.cfg.NewIndexInMemoryMaxBytes > 0 && size >= w.cfg.NewIndexInMemoryMaxBytes) {
			return w.materializeToDisk(w.cfg.DiskPath)
		}
	}
	return nil
}

// ForceMaterializeToDisk materializes a memory-backed directory to path
// unconditionally, regardless of the configured size thresholds. Used by
// Backup (source spec §4.5 step 1: "if the directory is memory-backed,
// force a write-to-disk materialization first").
func (w *Writer) ForceMaterializeToDisk(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir.OnDisk() {
		return nil
	}
	return w.materializeToDisk(path)
}

// materializeToDisk reindexes every currently-stored document into a new
// on-disk bleve index at path, then swaps it in as the writer's directory.
// Bleve does not expose the raw files of one open index to be byte-copied
// into a second, independently-opened index, so unlike the teacher's
// Lucene-level "copy all files" materialization, this one re-derives the
// disk index from the authoritative storedFields cache this Writer already
// maintains for fast projection.
func (w *Writer) materializeToDisk(path string) error {
	disk, err := vfs.OpenDiskDir(path, true)
	if err != nil {
		return errors.Wrap(err, "open disk directory")
	}

	newIdx, err := openOrCreateBleveIndex(disk, w.def, w.analyzers)
	if err != nil {
		return errors.Wrap(err, "create disk index")
	}

	batch := newIdx.NewBatch()
	for id, fields := range w.storedFields {
		if err := batch.Index(id, fields); err != nil {
			newIdx.Close()
			return errors.Wrapf(err, "reindex %v", id)
		}
	}
	if err := newIdx.Batch(batch); err != nil {
		newIdx.Close()
		return errors.Wrap(err, "commit reindexed batch")
	}

	old := w.idx
	oldDir := w.dir
	w.idx = newIdx
	w.dir = disk

	if err := w.writeManifest(Etag{}); err != nil {
		w.log.Warnf("manifest write after materialization failed: %v", err)
	}

	closeOld := func() {
		old.Close()
		oldDir.Close()
	}
	if w.retireHook != nil {
		w.retireHook(closeOld)
	} else {
		closeOld()
	}

	w.log.Printf("materialized index %q from memory to disk at %v", w.def.Name, path)
	return nil
}

// Optimize is the "optimize" entry point (source spec §4.1). It takes the
// writer lock and returns without merging anything: no merge is triggered,
// and segment merging is left to scorch's own background merger.
func (w *Writer) Optimize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.idx.Advanced()
	return nil
}

// Index exposes the underlying bleve index for search/highlight. Callers
// must go through the Searcher Holder, never hold this across a commit.
func (w *Writer) Index() bleve.Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.idx
}

// StoredFieldsSnapshot returns a copy of the materialized stored-fields
// array, used to build a SearcherState after a commit.
func (w *Writer) StoredFieldsSnapshot() map[string]map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]map[string]interface{}, len(w.storedFields))
	for k, v := range w.storedFields {
		out[k] = v
	}
	return out
}

// Generation returns the current commit generation counter.
func (w *Writer) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Dir returns the writer's current Segment Directory.
func (w *Writer) Dir() vfs.Dir {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Retention returns the writer's Snapshot-Retention Policy.
func (w *Writer) Retention() *vfs.RetentionPolicy {
	return w.retention
}

// Close disposes the writer's bleve index and directory.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.idx.Close()
	w.dir.Close()
	return err
}
