package vfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/dchest/safefile"
	"github.com/pkg/errors"
)

// diskDir is an on-disk Segment Directory. Grounded on the teacher's
// index/fs.go fsDir, including its use of dchest/safefile for atomic file
// creation (write to a temp file, rename on Commit).
type diskDir struct {
	path     string
	lockPath string
}

// OpenDiskDir opens (optionally creating) a directory on the real filesystem.
func OpenDiskDir(path string, create bool) (Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve path")
	}

	stat, err := os.Stat(abs)
	if err != nil {
		if create && os.IsNotExist(err) {
			if err := os.MkdirAll(abs, 0750); err != nil {
				return nil, errors.Wrap(err, "mkdir")
			}
		} else {
			return nil, errors.Wrap(err, "stat")
		}
	} else if !stat.IsDir() {
		return nil, errors.Errorf("vfs: %v is not a directory", abs)
	}

	return &diskDir{path: abs, lockPath: filepath.Join(abs, LockFileName+".holder")}, nil
}

func (d *diskDir) Path() string { return d.path }
func (d *diskDir) OnDisk() bool { return true }

func (d *diskDir) OpenFile(name string) (File, error) {
	f, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *diskDir) CreateAtomicFile(name string) (AtomicFile, error) {
	return safefile.Create(filepath.Join(d.path, name), 0644)
}

func (d *diskDir) RemoveFile(name string) error {
	err := os.Remove(filepath.Join(d.path, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *diskDir) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == LockFileName || filepath.Ext(e.Name()) == ".lock" {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (d *diskDir) SizeOf(name string) (int64, error) {
	info, err := os.Stat(filepath.Join(d.path, name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *diskDir) Lock() (io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(d.path, LockFileName), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return &diskLock{path: f.Name(), f: f}, nil
}

func (d *diskDir) Close() error { return nil }

type diskLock struct {
	path string
	f    *os.File
}

func (l *diskLock) Close() error {
	l.f.Close()
	return os.Remove(l.path)
}
