package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/delegate"
)

// DeviceRecord is one mountable partition or volume found on the host.
// Optional fields are nil when the backend did not report a value, which
// keeps "no label" apart from a label that is the empty string.
type DeviceRecord struct {
	// Path is the device special file, unique within a catalog
	Path string `json:"path" yaml:"path"`
	// Label is the filesystem label
	Label *string `json:"label" yaml:"label"`
	// UUID is the filesystem UUID
	UUID *string `json:"uuid" yaml:"uuid"`
	// FSType is the filesystem type; nil means the device cannot be mounted
	FSType *string `json:"fstype" yaml:"fstype"`
	// Name is the kernel device name (e.g. sdb1)
	Name string `json:"name" yaml:"name"`
	// Size in bytes, when reported
	Size *uint64 `json:"size,omitempty" yaml:"size,omitempty"`
}

// Catalog is an ordered snapshot of device records, in enumeration order.
// It is rebuilt for every operation and never cached.
type Catalog []DeviceRecord

// ByPath returns the record with the given device path
func (c Catalog) ByPath(path string) (*DeviceRecord, bool) {
	for i := range c {
		if c[i].Path == path {
			return &c[i], true
		}
	}
	return nil, false
}

// Builder enumerates the block devices of the host
type Builder interface {
	Build(ctx context.Context) (Catalog, error)
}

// ErrCatalog is returned when the device enumeration fails or its output
// cannot be understood
var ErrCatalog = errors.New("device enumeration failed")

// Backend names accepted by NewBuilder
const (
	BackendLsblk  = "lsblk"
	BackendUDisks = "udisks"
)

// NewBuilder creates a Builder for the specified backend
func NewBuilder(backend string, runner delegate.Runner) (Builder, error) {
	switch backend {
	case BackendLsblk:
		return NewLsblkBuilder(runner), nil
	case BackendUDisks:
		return NewUDisksBuilder()
	default:
		return nil, fmt.Errorf("unknown backend: %s (use '%s' or '%s')", backend, BackendLsblk, BackendUDisks)
	}
}

// optional converts a value from a backend that encodes "unknown" as the
// empty string
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value returns the pointed-to string, or def when the field is unknown
func Value(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
