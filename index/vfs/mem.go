package vfs

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// memDir is a Segment Directory that only ever lives in process memory.
// Grounded on the teacher's index/fs.go memDir: it trades durability for the
// ability to run small or short-lived indexes without touching disk at all,
// until the Writer decides to materialize it (see index.Writer.materializeToDisk).
type memDir struct {
	mu      sync.RWMutex
	entries map[string][]byte
	locked  bool
}

// NewMemDir creates a directory that only exists in memory.
func NewMemDir() Dir {
	return &memDir{entries: make(map[string][]byte)}
}

func (d *memDir) Path() string { return "" }
func (d *memDir) OnDisk() bool { return false }

func (d *memDir) OpenFile(name string) (File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.entries[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "memdir: %v", name)
	}
	return &memFile{Reader: bytes.NewReader(data)}, nil
}

func (d *memDir) CreateAtomicFile(name string) (AtomicFile, error) {
	return &memAtomicFile{dir: d, name: name}, nil
}

func (d *memDir) RemoveFile(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, name)
	return nil
}

func (d *memDir) ListFiles() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	return names, nil
}

func (d *memDir) SizeOf(name string) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.entries[name]
	if !ok {
		return 0, errors.Wrapf(ErrNotExist, "memdir: %v", name)
	}
	return int64(len(data)), nil
}

func (d *memDir) Lock() (io.Closer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return nil, ErrLocked
	}
	d.locked = true
	return &memLock{dir: d}, nil
}

func (d *memDir) Close() error { return nil }

type memLock struct{ dir *memDir }

func (l *memLock) Close() error {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	l.dir.locked = false
	return nil
}

type memFile struct{ *bytes.Reader }

func (f *memFile) Close() error { return nil }

type memAtomicFile struct {
	buf  bytes.Buffer
	dir  *memDir
	name string
}

func (f *memAtomicFile) Write(p []byte) (int, error) { return f.buf.Write(p) }

func (f *memAtomicFile) Commit() error {
	f.dir.mu.Lock()
	defer f.dir.mu.Unlock()
	data := make([]byte, f.buf.Len())
	copy(data, f.buf.Bytes())
	f.dir.entries[f.name] = data
	return nil
}

func (f *memAtomicFile) Close() error { return nil }

var _ io.Writer = (*memAtomicFile)(nil)
