package index

// Config carries the configuration keys named in source spec §6
// "Configuration keys consumed".
type Config struct {
	// FlushIndexToDiskSizeMB is the Segment Directory size threshold (in
	// megabytes) at or above which an explicit flush is performed after a
	// commit.
	FlushIndexToDiskSizeMB int

	// MaxIndexWritesBeforeRecreate is carried for configuration; the Writer
	// does not read it, and materialization to disk is decided only by
	// ForceWriteToDisk and NewIndexInMemoryMaxBytes.
	MaxIndexWritesBeforeRecreate int

	// NewIndexInMemoryMaxBytes is the size threshold (bytes) above which a
	// memory-backed directory is materialized to disk.
	NewIndexInMemoryMaxBytes int64

	// MaxNumberOfItemsToProcessInSingleBatch caps how many source documents
	// the external scheduler is expected to hand to one Apply call; the
	// engine itself does not chunk batches, but exposes this for the
	// scheduler to consult.
	MaxNumberOfItemsToProcessInSingleBatch int

	// MaxMapReduceIndexOutputsPerDocument / MaxSimpleIndexOutputsPerDocument
	// carry the global fan-out defaults. Definition.MaxOutputsPerDocument does
	// not read these fields: it falls back to the package constants of the
	// same names, so changing them here has no effect on pagination.
	MaxMapReduceIndexOutputsPerDocument int
	MaxSimpleIndexOutputsPerDocument    int

	// RunInMemory disables the size- and ForceWriteToDisk-triggered
	// materialization to disk after a commit. Backup still materializes a
	// memory-backed index before copying it.
	RunInMemory bool

	// ForceWriteToDisk forces materialization on the very next commit,
	// regardless of size thresholds.
	ForceWriteToDisk bool

	// DiskPath is where a memory-backed directory is materialized once
	// triggered.
	DiskPath string
}

// DefaultConfig returns reasonable defaults matching the source spec's
// named thresholds.
func DefaultConfig() Config {
	return Config{
		FlushIndexToDiskSizeMB:                  32,
		MaxIndexWritesBeforeRecreate:             1024,
		NewIndexInMemoryMaxBytes:                 16 * 1024 * 1024,
		MaxNumberOfItemsToProcessInSingleBatch:   1024,
		MaxMapReduceIndexOutputsPerDocument:      MaxMapReduceIndexOutputsPerDocument,
		MaxSimpleIndexOutputsPerDocument:         MaxSimpleIndexOutputsPerDocument,
		RunInMemory:                              false,
	}
}
