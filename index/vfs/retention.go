package vfs

import (
	"sync"

	"go4.org/syncutil"
)

// RetentionPolicy is the Snapshot-Retention Policy embedded in the Index
// Writer (source spec §2.2): it pins the files of the last successful commit
// while a Snapshot is outstanding, so a concurrent backup never races a
// segment cleanup.
type RetentionPolicy struct {
	mu     sync.Mutex
	pinned map[string]int
}

// NewRetentionPolicy creates an empty policy with nothing pinned.
func NewRetentionPolicy() *RetentionPolicy {
	return &RetentionPolicy{pinned: make(map[string]int)}
}

// Snapshot lists every file currently in dir and pins them against removal
// until the returned Snapshot is closed.
func (p *RetentionPolicy) Snapshot(dir Dir) (*Snapshot, error) {
	names, err := dir.ListFiles()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	for _, name := range names {
		p.pinned[name]++
	}
	p.mu.Unlock()

	return &Snapshot{policy: p, dir: dir, files: names}, nil
}

// CanRemove reports whether name is free of any outstanding pin. The Writer
// must consult this before deleting a segment file that a Snapshot might
// still be reading.
func (p *RetentionPolicy) CanRemove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pinned[name] == 0
}

func (p *RetentionPolicy) unpin(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		if p.pinned[name] > 0 {
			p.pinned[name]--
			if p.pinned[name] == 0 {
				delete(p.pinned, name)
			}
		}
	}
}

// Snapshot is a pinned, point-in-time file listing of a Segment Directory.
type Snapshot struct {
	policy *RetentionPolicy
	dir    Dir
	files  []string
	close  syncutil.Once
}

// Files returns the file names pinned by this snapshot.
func (s *Snapshot) Files() []string { return s.files }

// Dir returns the directory this snapshot was taken from.
func (s *Snapshot) Dir() Dir { return s.dir }

// Close releases the pin. Safe to call more than once.
func (s *Snapshot) Close() error {
	return s.close.Do(func() error {
		s.policy.unpin(s.files)
		return nil
	})
}
