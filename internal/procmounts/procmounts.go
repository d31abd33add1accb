package procmounts

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// Entry represents one line of the mount table
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
	Options    string
}

// Table answers questions about what is currently mounted
type Table interface {
	// Mounted reports whether target is a mount point
	Mounted(target string) (bool, error)
	// MountPointOf returns where source is mounted, or "" if it is not
	MountPointOf(source string) (string, error)
	// Under returns the mounts at or below root
	Under(root string) ([]Entry, error)
}

// System reads the mount table of the current process
type System struct{}

func (System) Mounted(target string) (bool, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return false, fmt.Errorf("get absolute path: %w", err)
	}

	mounts, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter(abs))
	if err != nil {
		return false, fmt.Errorf("read mount table: %w", err)
	}
	return len(mounts) > 0, nil
}

func (System) MountPointOf(source string) (string, error) {
	// Resolve /dev/disk/by-* style links to the real node
	resolved, err := filepath.EvalSymlinks(source)
	if err != nil {
		resolved = source
	}

	mounts, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		match := info.Source == source || info.Source == resolved
		return !match, match
	})
	if err != nil {
		return "", fmt.Errorf("read mount table: %w", err)
	}
	if len(mounts) == 0 {
		return "", nil
	}
	return mounts[0].Mountpoint, nil
}

func (System) Under(root string) ([]Entry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	mounts, err := mountinfo.GetMounts(mountinfo.PrefixFilter(abs))
	if err != nil {
		return nil, fmt.Errorf("read mount table: %w", err)
	}

	entries := make([]Entry, 0, len(mounts))
	for _, m := range mounts {
		entries = append(entries, fromInfo(m))
	}
	return entries, nil
}

func fromInfo(m *mountinfo.Info) Entry {
	opts := m.Options
	if m.VFSOptions != "" {
		opts = strings.Join([]string{m.Options, m.VFSOptions}, ",")
	}
	return Entry{
		Device:     m.Source,
		MountPoint: m.Mountpoint,
		FSType:     m.FSType,
		Options:    opts,
	}
}
