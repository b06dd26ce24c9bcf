// Package vfs implements the Segment Directory abstraction: an atomic,
// lockable, snapshottable view over either an in-memory or on-disk directory
// of index files. It does not know anything about the inverted-index library
// that writes into the directory; it only guarantees atomic file listing,
// advisory locking, and point-in-time snapshots for backup.
package vfs

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// LockFileName is the advisory lock file an Index Writer must hold before
// mutating a directory.
const LockFileName = "writing-to-index.lock"

// VersionFileName records the engine's own format version, written last on
// every commit alongside the inverted-index library's own segment files.
const VersionFileName = "index.version"

// ManifestFileName lists the files that made up the most recent consistent
// commit, so backup and restore never observe a half-written commit.
const ManifestFileName = "segments.gen"

var (
	// ErrNotExist is returned when a named file does not exist in the directory.
	ErrNotExist = os.ErrNotExist
	// ErrExist reports that a named file already exists (os.ErrExist).
	ErrExist = os.ErrExist
	// ErrLocked is returned when Lock is called on an already-locked directory.
	ErrLocked = errors.New("vfs: directory is already locked")
)

// IsNotExist reports whether err indicates a missing file.
func IsNotExist(err error) bool { return os.IsNotExist(err) }

// File is a readable, seekable, closeable handle on a stored file.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// AtomicFile is a write handle whose contents only become visible to other
// readers once Commit succeeds; Close without Commit discards the contents.
type AtomicFile interface {
	io.Writer
	io.Closer
	Commit() error
}

// Dir is the Segment Directory: either memory-backed or disk-backed.
type Dir interface {
	// Path returns the on-disk location backing this directory, or "" if the
	// directory is memory-backed.
	Path() string

	// OnDisk reports whether this directory is backed by real files.
	OnDisk() bool

	// OpenFile opens an existing file for reading.
	OpenFile(name string) (File, error)

	// CreateAtomicFile begins writing a new file; it is not visible to
	// OpenFile/ListFiles until Commit is called on the returned AtomicFile.
	CreateAtomicFile(name string) (AtomicFile, error)

	// RemoveFile deletes a file. Missing files are not an error.
	RemoveFile(name string) error

	// ListFiles lists every file currently committed in the directory.
	ListFiles() ([]string, error)

	// SizeOf returns the size in bytes of a committed file.
	SizeOf(name string) (int64, error)

	// Lock acquires the advisory writer lock, failing fast if it is held.
	Lock() (io.Closer, error)

	// Close releases any resources held by the directory (temp dirs, etc).
	Close() error
}

// TotalSize sums the size of every file currently in dir.
func TotalSize(dir Dir) (int64, error) {
	names, err := dir.ListFiles()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, name := range names {
		size, err := dir.SizeOf(name)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

// WriteFile is a convenience that wraps CreateAtomicFile/Commit around a
// writer callback, matching the teacher's vfs.WriteFile helper.
func WriteFile(dir Dir, name string, write func(w io.Writer) error) error {
	file, err := dir.CreateAtomicFile(name)
	if err != nil {
		return errors.Wrap(err, "create failed")
	}
	defer file.Close()

	if err := write(file); err != nil {
		return errors.Wrap(err, "write failed")
	}

	if err := file.Commit(); err != nil {
		return errors.Wrap(err, "commit failed")
	}

	return nil
}

// CopyFile copies a single named file from src to dst, without decoding its
// contents. Used by backup to move segment files opaquely.
func CopyFile(dst Dir, src Dir, name string) error {
	in, err := src.OpenFile(name)
	if err != nil {
		return errors.Wrapf(err, "open %v for copy", name)
	}
	defer in.Close()

	return WriteFile(dst, name, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
