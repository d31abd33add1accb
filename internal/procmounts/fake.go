package procmounts

import (
	"path/filepath"
	"strings"
	"sync"
)

// FakeTable is an in-memory Table for tests
type FakeTable struct {
	mu      sync.Mutex
	Entries []Entry
	Err     error
}

// Add records source as mounted at target
func (f *FakeTable) Add(source, target, fsType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entries = append(f.Entries, Entry{Device: source, MountPoint: target, FSType: fsType, Options: "rw"})
}

// Remove drops every entry mounted at target
func (f *FakeTable) Remove(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.Entries[:0]
	for _, e := range f.Entries {
		if e.MountPoint != target {
			kept = append(kept, e)
		}
	}
	f.Entries = kept
}

func (f *FakeTable) Mounted(target string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	for _, e := range f.Entries {
		if e.MountPoint == filepath.Clean(target) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeTable) MountPointOf(source string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	for _, e := range f.Entries {
		if e.Device == source {
			return e.MountPoint, nil
		}
	}
	return "", nil
}

func (f *FakeTable) Under(root string) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	root = filepath.Clean(root)
	var out []Entry
	for _, e := range f.Entries {
		if e.MountPoint == root || strings.HasPrefix(e.MountPoint, root+"/") {
			out = append(out, e)
		}
	}
	return out, nil
}
