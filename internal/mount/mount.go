package mount

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/delegate"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/procmounts"
)

// Mounter defines the interface for mount/unmount operations
type Mounter interface {
	// Mount mounts the source device to the target directory
	Mount(ctx context.Context, source, target, fsType string, options []string) error
	// Unmount unmounts the target directory
	Unmount(ctx context.Context, target string) error
	// MakeDir creates the target directory and its parents; an existing
	// directory is not an error
	MakeDir(ctx context.Context, path string) error
	// IsMounted checks if the target is mounted
	IsMounted(target string) (bool, error)
	// GetMountPoint returns the mount point for a source device
	// Returns empty string if not mounted
	GetMountPoint(source string) (string, error)
	// MountsUnder lists the mounts at or below root
	MountsUnder(root string) ([]procmounts.Entry, error)
}

// CommandError reports a delegate that exited with a non-zero status
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

// Error returns the delegate's own diagnostic so it reaches the user verbatim
func (e *CommandError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s exited with status %d", e.Argv[0], e.ExitCode)
}

// CommandMounter implements Mounter by running mount, umount and mkdir
type CommandMounter struct {
	runner delegate.Runner
	fs     vfs.FS
	table  procmounts.Table
}

// NewCommandMounter creates a mounter that delegates to host utilities.
// fsys is used to look at mount point directories before creating them.
func NewCommandMounter(runner delegate.Runner, fsys vfs.FS, table procmounts.Table) *CommandMounter {
	return &CommandMounter{
		runner: runner,
		fs:     fsys,
		table:  table,
	}
}

// run executes a privileged delegate and turns a failed exit into a CommandError
func (m *CommandMounter) run(ctx context.Context, name string, args ...string) error {
	cmd := delegate.Command{Name: name, Args: args, Privileged: true}
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.Success() {
		return &CommandError{Argv: cmd.Argv(), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// Mount mounts the source device to the target directory
func (m *CommandMounter) Mount(ctx context.Context, source, target, fsType string, options []string) error {
	log.Debug("mounting filesystem", "source", source, "target", target, "type", fsType, "options", options)

	var args []string
	if fsType != "" {
		args = append(args, "-t", fsType)
	}
	if len(options) > 0 {
		args = append(args, "-o", strings.Join(options, ","))
	}
	args = append(args, "--", source, target)

	if err := m.run(ctx, "mount", args...); err != nil {
		return err
	}

	log.Debug("mounted successfully", "source", source, "target", target)
	return nil
}

// Unmount unmounts the target directory
func (m *CommandMounter) Unmount(ctx context.Context, target string) error {
	log.Debug("unmounting", "target", target)

	if err := m.run(ctx, "umount", "--", target); err != nil {
		return err
	}

	log.Debug("unmounted successfully", "target", target)
	return nil
}

// MakeDir creates path with mkdir -p unless it already is a directory
func (m *CommandMounter) MakeDir(ctx context.Context, path string) error {
	info, err := m.fs.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%s exists but is not a directory", path)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	log.Debug("creating mount point", "path", path)
	return m.run(ctx, "mkdir", "-p", "--", path)
}

// IsMounted checks if the target is mounted
func (m *CommandMounter) IsMounted(target string) (bool, error) {
	mounted, err := m.table.Mounted(target)
	if err != nil {
		return false, fmt.Errorf("unable to parse mounts: %w", err)
	}
	return mounted, nil
}

// GetMountPoint returns the mount point for a source device
func (m *CommandMounter) GetMountPoint(source string) (string, error) {
	mp, err := m.table.MountPointOf(source)
	if err != nil {
		return "", fmt.Errorf("unable to parse mounts: %w", err)
	}
	return mp, nil
}

// MountsUnder lists the mounts at or below root
func (m *CommandMounter) MountsUnder(root string) ([]procmounts.Entry, error) {
	entries, err := m.table.Under(root)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mounts: %w", err)
	}
	return entries, nil
}
