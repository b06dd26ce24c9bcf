package vfs

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDirWriteReadRoundTrip(t *testing.T) {
	dir := NewMemDir()

	err := WriteFile(dir, "segments.gen", func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	require.NoError(t, err)

	f, err := dir.OpenFile("segments.gen")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemDirListAndSize(t *testing.T) {
	dir := NewMemDir()
	require.NoError(t, WriteFile(dir, "a", func(w io.Writer) error { _, err := w.Write([]byte("abc")); return err }))
	require.NoError(t, WriteFile(dir, "b", func(w io.Writer) error { _, err := w.Write([]byte("de")); return err }))

	names, err := dir.ListFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	total, err := TotalSize(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}

func TestMemDirLockIsExclusive(t *testing.T) {
	dir := NewMemDir()

	lock, err := dir.Lock()
	require.NoError(t, err)

	_, err = dir.Lock()
	assert.Equal(t, ErrLocked, err)

	require.NoError(t, lock.Close())

	lock2, err := dir.Lock()
	require.NoError(t, err)
	require.NoError(t, lock2.Close())
}

func TestRetentionPolicyPinsSnapshotFiles(t *testing.T) {
	dir := NewMemDir()
	require.NoError(t, WriteFile(dir, "seg1", func(w io.Writer) error { _, err := w.Write([]byte("x")); return err }))

	policy := NewRetentionPolicy()
	snap, err := policy.Snapshot(dir)
	require.NoError(t, err)

	assert.False(t, policy.CanRemove("seg1"))

	require.NoError(t, snap.Close())
	assert.True(t, policy.CanRemove("seg1"))
}

func TestCopyFileBetweenDirs(t *testing.T) {
	src := NewMemDir()
	require.NoError(t, WriteFile(src, "seg1", func(w io.Writer) error { _, err := w.Write([]byte("payload")); return err }))

	dst := NewMemDir()
	require.NoError(t, CopyFile(dst, src, "seg1"))

	f, err := dst.OpenFile("seg1")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestOpenDiskDirCreatesMissingDirectory(t *testing.T) {
	path := t.TempDir() + "/sub"
	dir, err := OpenDiskDir(path, true)
	require.NoError(t, err)
	defer dir.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.True(t, dir.OnDisk())
}

func TestDiskDirWriteReadRoundTrip(t *testing.T) {
	dir, err := OpenDiskDir(t.TempDir(), true)
	require.NoError(t, err)
	defer dir.Close()

	require.NoError(t, WriteFile(dir, "index.version", func(w io.Writer) error {
		_, err := w.Write([]byte("1"))
		return err
	}))

	f, err := dir.OpenFile("index.version")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}
