package shell

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/driver"
)

// ErrExit is returned by Execute when the session should end
var ErrExit = errors.New("exit")

// UsageError reports a command invoked with the wrong arguments
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "Usage: " + e.Usage
}

type command struct {
	name    string
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, s *Session, args []string) error
}

// commandTable lists the shell commands in the order help shows them
func commandTable() []*command {
	return []*command{
		{name: "scan", usage: "scan [table|json|yaml]", help: "Scan and list all devices", run: cmdScan},
		{name: "mount", usage: "mount <identifier> [mount_point]", help: "Mount a device by path, label, UUID or name", minArgs: 1, run: cmdMount},
		{name: "umount", usage: "umount <identifier>", help: "Unmount a device", minArgs: 1, run: cmdUmount},
		{name: "mounts", usage: "mounts", help: "List devices mounted under the mount root", run: cmdMounts},
		{name: "fstab", usage: "fstab <identifier> [mount_point]", help: "Print the fstab line for a device", minArgs: 1, run: cmdFstab},
		{name: "cd", usage: "cd <path>", help: "Change directory to the specified path", minArgs: 1, run: cmdCd},
		{name: "pwd", usage: "pwd", help: "Print the current working directory", run: cmdPwd},
		{name: "ls", usage: "ls [args]", help: "List files in the current directory", run: cmdLs},
		{name: "copy", usage: "copy <source>... <destination>", help: "Copy files or directories", minArgs: 2, run: cmdCopy},
		{name: "move", usage: "move <source>... <destination>", help: "Move files or directories", minArgs: 2, run: cmdMove},
		{name: "delete", usage: "delete <path>...", help: "Delete files or directories", minArgs: 1, run: cmdDelete},
		{name: "print", usage: "print <file>", help: "Print the contents of a file", minArgs: 1, run: cmdPrint},
		{name: "write", usage: "write <file>", help: "Edit a file", minArgs: 1, run: cmdWrite},
		{name: "help", usage: "help", help: "Show this help message", run: cmdHelp},
		{name: "exit", usage: "exit", help: "Exit the program", run: cmdExit},
	}
}

func lookup(name string) *command {
	if name == "quit" {
		name = "exit"
	}
	for _, c := range commandTable() {
		if c.name == name {
			return c
		}
	}
	return nil
}

// joinArgs rebuilds an unquoted identifier or path that contained spaces
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

// splitMountArgs separates a trailing absolute mount point from the identifier
func splitMountArgs(args []string) (id, mountPoint string) {
	if len(args) > 1 && filepath.IsAbs(args[len(args)-1]) {
		return joinArgs(args[:len(args)-1]), args[len(args)-1]
	}
	return joinArgs(args), ""
}

// relativeMountPoint returns the trailing word when it reads like a relative
// path the user meant as a mount point
func relativeMountPoint(args []string) string {
	if len(args) < 2 {
		return ""
	}
	last := args[len(args)-1]
	if filepath.IsAbs(last) || !strings.ContainsAny(last, "/.") {
		return ""
	}
	return last
}

// withMountPointHint notes that a relative trailing word was read as part of
// the identifier
func withMountPointHint(err error, root string, args []string) error {
	if rel := relativeMountPoint(args); rel != "" {
		return fmt.Errorf("%w (mount point %s must be an absolute path, e.g. %s)",
			err, quote(rel), quote(filepath.Join(root, rel)))
	}
	return err
}

// quote makes s safe to paste back into the shell
func quote(s string) string {
	if strings.ContainsAny(s, " \t'\"\\") {
		return strconv.Quote(s)
	}
	return s
}

func cmdScan(ctx context.Context, s *Session, args []string) error {
	format := catalog.FormatTable
	if len(args) > 0 {
		format = args[0]
	}

	c, err := s.Driver.Scan(ctx)
	if err != nil {
		return err
	}
	return catalog.Print(s.Out, c, format)
}

func cmdMount(ctx context.Context, s *Session, args []string) error {
	id, mountPoint := splitMountArgs(args)

	out, err := s.Driver.Mount(ctx, driver.MountRequest{Identifier: id, MountPoint: mountPoint})
	if err != nil {
		return withMountPointHint(fmt.Errorf("failed to mount %s: %w", id, err), s.Driver.MountRoot(), args)
	}

	// A label given without an explicit mount point unmounts by itself
	hint := out.MountPoint
	if out.MatchedBy == driver.MatchLabel && mountPoint == "" {
		hint = id
	}

	fmt.Fprintf(s.Out, "Successfully mounted %s at %s\n", id, out.MountPoint)
	fmt.Fprintf(s.Out, "To navigate to the mounted directory, run: cd %s\n", quote(out.MountPoint))
	fmt.Fprintf(s.Out, "Unmount it using: umount %s\n", quote(hint))
	return nil
}

func cmdUmount(ctx context.Context, s *Session, args []string) error {
	id := joinArgs(args)

	path, err := s.Driver.Unmount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to unmount %s: %w", id, err)
	}

	fmt.Fprintf(s.Out, "Successfully unmounted %s.\n", path)
	return nil
}

func cmdMounts(_ context.Context, s *Session, _ []string) error {
	entries, err := s.Driver.Mounts()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(s.Out, "No devices mounted under %s\n", s.Driver.MountRoot())
		return nil
	}

	tw := tabwriter.NewWriter(s.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tMOUNTPOINT\tFSTYPE\tSIZE\tUSED\tAVAIL\tUSE%")
	for _, e := range entries {
		size, used, avail, pct := catalog.Unknown, catalog.Unknown, catalog.Unknown, catalog.Unknown
		if u, err := s.Usage(e.MountPoint); err == nil {
			size = humanize.IBytes(u.Total)
			used = humanize.IBytes(u.Used)
			avail = humanize.IBytes(u.Free)
			pct = fmt.Sprintf("%.0f%%", u.UsedPercent)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Device, e.MountPoint, e.FSType, size, used, avail, pct)
	}
	return tw.Flush()
}

func cmdFstab(ctx context.Context, s *Session, args []string) error {
	id, mountPoint := splitMountArgs(args)

	entry, err := s.Driver.FstabEntry(ctx, id, mountPoint)
	if err != nil {
		return withMountPointHint(err, s.Driver.MountRoot(), args)
	}

	fmt.Fprintln(s.Out, entry.String())
	return nil
}

func cmdCd(_ context.Context, s *Session, args []string) error {
	return s.Chdir(joinArgs(args))
}

func cmdPwd(_ context.Context, s *Session, _ []string) error {
	fmt.Fprintln(s.Out, s.Cwd)
	return nil
}

func cmdLs(ctx context.Context, s *Session, args []string) error {
	return s.run(ctx, "ls", args...)
}

func cmdCopy(ctx context.Context, s *Session, args []string) error {
	return s.run(ctx, "cp", append([]string{"-r", "--"}, args...)...)
}

func cmdMove(ctx context.Context, s *Session, args []string) error {
	return s.run(ctx, "mv", append([]string{"--"}, args...)...)
}

func cmdDelete(ctx context.Context, s *Session, args []string) error {
	ok, err := s.Confirm(fmt.Sprintf("Are you sure you want to delete %s", strings.Join(args, ", ")))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.Out, "Deletion cancelled")
		return nil
	}

	if err := s.run(ctx, "rm", append([]string{"-rf", "--"}, args...)...); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "Deleted %s\n", strings.Join(args, ", "))
	return nil
}

func cmdPrint(ctx context.Context, s *Session, args []string) error {
	return s.run(ctx, "cat", "--", joinArgs(args))
}

func cmdWrite(ctx context.Context, s *Session, args []string) error {
	return s.edit(ctx, joinArgs(args))
}

func cmdHelp(_ context.Context, s *Session, _ []string) error {
	fmt.Fprintln(s.Out, "\nAvailable commands:")
	tw := tabwriter.NewWriter(s.Out, 0, 0, 2, ' ', 0)
	for _, c := range commandTable() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.usage, c.help)
	}
	return tw.Flush()
}

func cmdExit(context.Context, *Session, []string) error {
	return ErrExit
}
