package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/deniswernert/go-fstab"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/lock"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/mount"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/procmounts"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/validation"
)

// MountRequest asks for a device to be mounted. An empty MountPoint lets the
// driver derive one.
type MountRequest struct {
	Identifier string
	MountPoint string
}

// MountOutcome describes a successful mount
type MountOutcome struct {
	Device     catalog.DeviceRecord
	MatchedBy  MatchKind
	MountPoint string
}

// Driver resolves identifiers to devices and mounts or unmounts them
type Driver struct {
	mu           sync.Mutex
	mountRoot    string
	mountOptions []string
	strict       bool
	catalog      catalog.Builder
	mounter      mount.Mounter
	locker       lock.Locker
}

// Option is a functional option for Driver
type Option func(*Driver)

// WithStrict rejects identifiers matching more than one device
func WithStrict(strict bool) Option {
	return func(d *Driver) {
		d.strict = strict
	}
}

// WithMountOptions sets the options passed to mount -o
func WithMountOptions(opts []string) Option {
	return func(d *Driver) {
		d.mountOptions = opts
	}
}

// WithLocker sets the locker guarding mount points
func WithLocker(l lock.Locker) Option {
	return func(d *Driver) {
		d.locker = l
	}
}

// NewDriver creates a new mount driver
func NewDriver(
	mountRoot string,
	builder catalog.Builder,
	mounter mount.Mounter,
	opts ...Option,
) *Driver {
	d := &Driver{
		mountRoot: mountRoot,
		catalog:   builder,
		mounter:   mounter,
		locker:    lock.NopLocker{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MountRoot returns the directory derived mount points live under
func (d *Driver) MountRoot() string {
	return d.mountRoot
}

// Scan enumerates the devices currently attached
func (d *Driver) Scan(ctx context.Context) (catalog.Catalog, error) {
	return d.catalog.Build(ctx)
}

// resolve builds a fresh catalog and resolves id against it
func (d *Driver) resolve(ctx context.Context, id string) (*Match, error) {
	if err := validation.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	c, err := d.catalog.Build(ctx)
	if err != nil {
		return nil, err
	}

	m, err := Resolve(c, id, d.strict)
	if err != nil {
		return nil, err
	}

	log.Debug("identifier resolved", "identifier", id, "device", m.Record.Path, "matchedBy", m.Kind)
	return m, nil
}

// Mount resolves the identifier and mounts the device
func (d *Driver) Mount(ctx context.Context, req MountRequest) (*MountOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log.Debug("mounting device", "identifier", req.Identifier, "mountPoint", req.MountPoint)

	if req.MountPoint != "" {
		if err := validation.ValidateMountPoint(req.MountPoint); err != nil {
			return nil, err
		}
	}

	m, err := d.resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	dev := m.Record

	fsType := catalog.Value(dev.FSType, "")
	if fsType == "" {
		return nil, fmt.Errorf("%w on %s", ErrUnknownFSType, dev.Path)
	}

	mountPoint := MountPointFor(d.mountRoot, dev, req.MountPoint)

	unlock, err := d.locker.Lock(ctx, mountPoint)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existingMount, err := d.mounter.GetMountPoint(dev.Path)
	if err != nil {
		return nil, fmt.Errorf("check existing mount: %w", err)
	}
	if existingMount != "" {
		log.Debug("device already mounted elsewhere", "device", dev.Path, "path", existingMount)
	}

	busy, err := d.mounter.IsMounted(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("check mount status: %w", err)
	}
	if busy {
		return nil, fmt.Errorf("%w: another filesystem is mounted at %s", ErrAlreadyMounted, mountPoint)
	}

	if err := d.mounter.MakeDir(ctx, mountPoint); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMkdir, mountPoint, err)
	}

	if err := d.mounter.Mount(ctx, dev.Path, mountPoint, fsType, d.mountOptions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMount, err)
	}

	log.Info("device mounted", "device", dev.Path, "path", mountPoint, "fs", fsType)
	return &MountOutcome{Device: dev, MatchedBy: m.Kind, MountPoint: mountPoint}, nil
}

// Unmount unmounts the device named by the identifier and returns the path
// that was unmounted
func (d *Driver) Unmount(ctx context.Context, id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log.Debug("unmounting device", "identifier", id)

	if err := validation.ValidateIdentifier(id); err != nil {
		return "", err
	}

	target := MountPointForIdentifier(d.mountRoot, id)

	mounted := false
	if target != "" {
		var err error
		mounted, err = d.mounter.IsMounted(target)
		if err != nil {
			return "", fmt.Errorf("check mount status: %w", err)
		}
	}

	if !mounted {
		located, err := d.locate(ctx, id)
		switch {
		case err == nil:
			target = located
		case errors.Is(err, ErrOutsideRoot), target == "":
			return "", err
		default:
			log.Debug("falling back to derived mount point", "identifier", id, "path", target, "error", err)
		}
	}

	unlock, err := d.locker.Lock(ctx, target)
	if err != nil {
		return "", err
	}
	defer unlock()

	if err := d.mounter.Unmount(ctx, target); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnmount, err)
	}

	log.Info("device unmounted", "identifier", id, "path", target)
	return target, nil
}

// locate finds where the device named by id is mounted under the mount
// root, or where Mount would have put it. A device mounted anywhere else is
// left alone.
func (d *Driver) locate(ctx context.Context, id string) (string, error) {
	m, err := d.resolve(ctx, id)
	if err != nil {
		return "", err
	}

	existingMount, err := d.mounter.GetMountPoint(m.Record.Path)
	if err != nil {
		return "", fmt.Errorf("check mount status: %w", err)
	}
	if existingMount != "" {
		if !underRoot(d.mountRoot, existingMount) {
			return "", fmt.Errorf("%w: %s is mounted at %s, unmount it by that path",
				ErrOutsideRoot, m.Record.Path, existingMount)
		}
		return existingMount, nil
	}

	return MountPointFor(d.mountRoot, m.Record, ""), nil
}

// FstabEntry resolves the identifier and renders the fstab line that would
// mount it permanently
func (d *Driver) FstabEntry(ctx context.Context, id, explicit string) (*fstab.Mount, error) {
	if explicit != "" {
		if err := validation.ValidateMountPoint(explicit); err != nil {
			return nil, err
		}
	}

	m, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	dev := m.Record

	fsType := catalog.Value(dev.FSType, "")
	if fsType == "" {
		return nil, fmt.Errorf("%w on %s", ErrUnknownFSType, dev.Path)
	}

	spec := dev.Path
	switch {
	case catalog.Value(dev.UUID, "") != "":
		spec = "UUID=" + *dev.UUID
	case catalog.Value(dev.Label, "") != "":
		spec = "LABEL=" + *dev.Label
	}

	return mount.FstabEntry(spec, MountPointFor(d.mountRoot, dev, explicit), fsType, d.mountOptions), nil
}

// Mounts lists the filesystems mounted under the mount root
func (d *Driver) Mounts() ([]procmounts.Entry, error) {
	return d.mounter.MountsUnder(d.mountRoot)
}
