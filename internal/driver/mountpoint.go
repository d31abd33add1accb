package driver

import (
	"path/filepath"
	"strings"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
)

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_")

// dirName turns a label or identifier into a single path component.
// It returns "" when nothing usable is left.
func dirName(s string) string {
	name := nameReplacer.Replace(s)
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}

// MountPointFor derives where rec is mounted: the explicit mount point when
// given, else the label under root, else the device basename under root.
func MountPointFor(root string, rec catalog.DeviceRecord, explicit string) string {
	if explicit != "" {
		return filepath.Clean(explicit)
	}
	if rec.Label != nil {
		if name := dirName(*rec.Label); name != "" {
			return filepath.Join(root, name)
		}
	}
	return filepath.Join(root, filepath.Base(rec.Path))
}

// MountPointForIdentifier derives a mount point from the identifier alone.
// A label maps to the same path MountPointFor gives its record, so a device
// mounted by label is unmounted by label without enumerating devices.
// It returns "" if id cannot name a directory.
func MountPointForIdentifier(root, id string) string {
	switch {
	case strings.HasPrefix(id, "/dev/"):
		return filepath.Join(root, filepath.Base(id))
	case filepath.IsAbs(id):
		return filepath.Clean(id)
	}
	name := dirName(id)
	if name == "" {
		return ""
	}
	return filepath.Join(root, name)
}

// underRoot reports whether p is root or lies beneath it.
func underRoot(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}
