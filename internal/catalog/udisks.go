package catalog

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/godbus/dbus/v5"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
)

const (
	udisksService        = "org.freedesktop.UDisks2"
	udisksRootPath       = "/org/freedesktop/UDisks2"
	dbusObjectManager    = "org.freedesktop.DBus.ObjectManager"
	udisksBlockIface     = "org.freedesktop.UDisks2.Block"
	udisksPartitionIface = "org.freedesktop.UDisks2.Partition"
)

// BusConn is the part of a D-Bus connection the udisks backend talks to.
// *dbus.Conn satisfies it.
type BusConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

var _ BusConn = (*dbus.Conn)(nil)

// UDisksBuilder implements Builder using the UDisks2 DBus API
type UDisksBuilder struct {
	conn BusConn
}

// UDisksBuilderOption is a functional option for UDisksBuilder
type UDisksBuilderOption func(*UDisksBuilder)

// WithConnection sets a custom DBus connection (for testing)
func WithConnection(conn BusConn) UDisksBuilderOption {
	return func(b *UDisksBuilder) {
		b.conn = conn
	}
}

// NewUDisksBuilder creates a Builder backed by udisksd
func NewUDisksBuilder(opts ...UDisksBuilderOption) (*UDisksBuilder, error) {
	b := &UDisksBuilder{}
	for _, opt := range opts {
		opt(b)
	}

	if b.conn == nil {
		// A private connection; Close must not tear down the shared one
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, fmt.Errorf("connect to system bus: %w", err)
		}
		b.conn = conn
	}

	return b, nil
}

// Close closes the DBus connection
func (b *UDisksBuilder) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Build lists every partition known to udisksd. Objects are sorted by path
// because the managed object map has no order of its own.
func (b *UDisksBuilder) Build(ctx context.Context) (Catalog, error) {
	log.Debug("enumerating block devices", "backend", BackendUDisks)

	obj := b.conn.Object(udisksService, dbus.ObjectPath(udisksRootPath))

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := obj.CallWithContext(ctx, dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("%w: GetManagedObjects: %w", ErrCatalog, call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("%w: store GetManagedObjects result: %w", ErrCatalog, err)
	}

	paths := make([]string, 0, len(objects))
	for path := range objects {
		paths = append(paths, string(path))
	}
	sort.Strings(paths)

	catalog := Catalog{}
	for _, path := range paths {
		ifaces := objects[dbus.ObjectPath(path)]

		blockProps, ok := ifaces[udisksBlockIface]
		if !ok {
			continue
		}
		if _, ok := ifaces[udisksPartitionIface]; !ok {
			continue
		}

		rec, ok := recordFromBlock(blockProps)
		if !ok {
			log.Debug("skipping block object without device", "object", path)
			continue
		}
		catalog = append(catalog, rec)
	}

	log.Debug("block devices enumerated", "count", len(catalog))
	return catalog, nil
}

// recordFromBlock builds a DeviceRecord from org.freedesktop.UDisks2.Block
// properties. udisksd reports unknown identification fields as "".
func recordFromBlock(props map[string]dbus.Variant) (DeviceRecord, bool) {
	var rec DeviceRecord

	if v, ok := props["Device"]; ok {
		if raw, ok := v.Value().([]byte); ok {
			// Byte string properties carry a trailing NUL
			rec.Path = string(bytes.TrimRight(raw, "\x00"))
		}
	}
	if rec.Path == "" {
		return rec, false
	}
	rec.Name = filepath.Base(rec.Path)

	rec.Label = optional(stringProp(props, "IdLabel"))
	rec.UUID = optional(stringProp(props, "IdUUID"))
	rec.FSType = optional(stringProp(props, "IdType"))

	if v, ok := props["Size"]; ok {
		if size, ok := v.Value().(uint64); ok && size > 0 {
			rec.Size = &size
		}
	}

	return rec, true
}

func stringProp(props map[string]dbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}
