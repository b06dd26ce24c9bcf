package index

import (
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ravendb/ravenidx/index/vfs"
)

// allExistingIndexFilesSuffix and requiredFilesName name the two manifests
// backup reads/writes at the destination (source spec §4.5 step 4: "read an
// existing all-existing-index-files log at the destination ... always
// append to index-files.required-for-index-restore").
const (
	allExistingIndexFilesSuffix = ".all-existing-index-files"
	requiredFilesName           = "index-files.required-for-index-restore"
)

// BackupReport summarizes one Backup call.
type BackupReport struct {
	IndexID      string
	FilesCopied  int
	BytesCopied  int64
	IncrementalID string
}

// Backup performs a concurrent, point-in-time backup of idx's directory into
// dest, implementing source spec §4.5 verbatim:
//
//  1. if memory-backed, force materialization to disk first;
//  2. under the write lock, with an empty commit, copy segments.gen and
//     index.version to dest;
//  3. release the write lock, take a retention-policy snapshot;
//  4. for each snapshot file not already logged and not a .lock file, copy
//     it and append to the log; always append to the required-files list;
//  5. on CorruptIndex during step 2, delete the required-files file and
//     return without negatively releasing the snapshot (forces a restore
//     reset);
//  6. always release the snapshot on exit.
//
// Every file, including both logs, is written flat into dest itself: there
// is no Indexes/<indexId>/ subdirectory, and the all-existing-index-files log
// is named after the index name rather than its numeric ID.
func (idx *Index) Backup(dest vfs.Dir) (*BackupReport, error) {
	if idx.disposed.Load() {
		return nil, ErrAlreadyDisposed
	}
	started := idx.clock.Now()

	if !idx.writer.Dir().OnDisk() {
		if err := idx.forceMaterialize(); err != nil {
			return nil, errors.Wrap(err, "materialize before backup")
		}
	}

	idx.writeMu.Lock()
	if err := idx.writer.flush(); err != nil {
		idx.writeMu.Unlock()
		_ = dest.RemoveFile(requiredFilesName)
		return nil, &CorruptIndexError{IndexName: idx.def.Name, Err: err}
	}
	src := idx.writer.Dir()

	if err := copyManifestFiles(dest, src); err != nil {
		idx.writeMu.Unlock()
		_ = dest.RemoveFile(requiredFilesName)
		return nil, &CorruptIndexError{IndexName: idx.def.Name, Err: err}
	}
	idx.writeMu.Unlock()

	snap, err := idx.writer.Retention().Snapshot(src)
	if err != nil {
		return nil, errors.Wrap(err, "take retention snapshot")
	}
	defer snap.Close()

	report := &BackupReport{IndexID: idx.def.Name, IncrementalID: uuid.NewString()}

	logName := idx.def.Name + allExistingIndexFilesSuffix
	alreadyLogged, err := readExistingFilesLog(dest, logName)
	if err != nil {
		return nil, errors.Wrap(err, "read all-existing-index-files log")
	}

	var appended []string
	for _, name := range snap.Files() {
		if strings.HasSuffix(name, ".lock") {
			continue
		}
		if alreadyLogged[name] {
			continue
		}
		if err := vfs.CopyFile(dest, src, name); err != nil {
			return nil, errors.Wrapf(err, "copy %v", name)
		}
		size, err := src.SizeOf(name)
		if err != nil {
			return nil, err
		}
		report.FilesCopied++
		report.BytesCopied += size
		appended = append(appended, name)
	}

	if err := appendExistingFilesLog(dest, logName, appended); err != nil {
		return nil, errors.Wrap(err, "append all-existing-index-files log")
	}
	if err := appendRequiredFilesList(dest, requiredFilesName, snap.Files()); err != nil {
		return nil, errors.Wrap(err, "append required-for-restore list")
	}

	if idx.metrics != nil {
		idx.metrics.ObserveBackup(idx.def.Name, idx.clock.Now().Sub(started).Seconds(), report.FilesCopied)
	}

	return report, nil
}

func (idx *Index) forceMaterialize() error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	path := idx.cfg.DiskPath
	if path == "" {
		path = idx.def.Name
	}
	return idx.writer.ForceMaterializeToDisk(path)
}

func copyManifestFiles(dest, src vfs.Dir) error {
	for _, name := range []string{vfs.ManifestFileName, vfs.VersionFileName} {
		if err := vfs.CopyFile(dest, src, name); err != nil {
			return err
		}
	}
	return nil
}

func readExistingFilesLog(dir vfs.Dir, name string) (map[string]bool, error) {
	f, err := dir.OpenFile(name)
	if err != nil {
		if vfs.IsNotExist(errors.Cause(err)) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			set[line] = true
		}
	}
	return set, nil
}

func appendExistingFilesLog(dir vfs.Dir, name string, newNames []string) error {
	existing, err := readExistingFilesLog(dir, name)
	if err != nil {
		return err
	}
	for _, n := range newNames {
		existing[n] = true
	}
	return vfs.WriteFile(dir, name, func(w io.Writer) error {
		// Writing an empty-but-valid manifest even when newNames is empty
		// satisfies the "empty incremental backup still emits a manifest
		// file" rule rather than skip the write entirely.
		for n := range existing {
			if _, err := fmt.Fprintln(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func appendRequiredFilesList(dir vfs.Dir, name string, files []string) error {
	existing, err := readExistingFilesLog(dir, name)
	if err != nil {
		return err
	}
	for _, f := range files {
		existing[f] = true
	}
	return vfs.WriteFile(dir, name, func(w io.Writer) error {
		for n := range existing {
			if _, err := fmt.Fprintln(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// fileChecksum hashes a Segment Directory file with xxhash. Nothing in the
// module calls it, and no backup manifest records a checksum.
func fileChecksum(dir vfs.Dir, name string) (uint64, error) {
	f, err := dir.OpenFile(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
