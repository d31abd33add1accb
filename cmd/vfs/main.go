package main

import (
	"context"
	"fmt"
	"io"
	"os"

	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v3"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/config"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/delegate"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/driver"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/lock"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/mount"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/procmounts"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/shell"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:  "vfs",
		Usage: "Mount block devices by path, label, UUID or name and browse them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file with VFS_* overrides",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:    "mount-root",
				Aliases: []string{"m"},
				Usage:   "Base directory for derived mount points (default: /mnt)",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Device enumeration backend: lsblk or udisks (default: lsblk)",
			},
			&cli.BoolFlag{
				Name:  "sudo",
				Usage: "Run mount, umount and mkdir through sudo",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Refuse identifiers that match more than one device",
			},
			&cli.StringFlag{
				Name:  "lock-dir",
				Usage: "Directory for mount point lock files; empty disables locking",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"V"},
				Usage:   "Print version information",
			},
		},
		Action: runShell,
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "List block devices",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output format: table, json or yaml",
						Value:   catalog.FormatTable,
					},
				},
				Action: runScan,
			},
			{
				Name:      "mount",
				Usage:     "Mount a device",
				ArgsUsage: "<identifier> [mount_point]",
				Action:    runMount,
			},
			{
				Name:      "umount",
				Usage:     "Unmount a device",
				ArgsUsage: "<identifier>",
				Action:    runUmount,
			},
			{
				Name:      "fstab",
				Usage:     "Print the fstab line for a device",
				ArgsUsage: "<identifier> [mount_point]",
				Action:    runFstab,
			},
			{
				Name:   "mounts",
				Usage:  "List devices mounted under the mount root",
				Action: runMounts,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every command
type app struct {
	cfg     *config.Config
	runner  *delegate.ExecRunner
	builder catalog.Builder
	driver  *driver.Driver
}

func (a *app) Close() {
	if c, ok := a.builder.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("failed to close device backend", "error", err)
		}
	}
}

// loadConfig reads the config file and env file, then applies the flags
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ApplyEnv(cmd.String("env-file")); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	overrides := config.Overrides{
		MountRoot: cmd.String("mount-root"),
		Backend:   cmd.String("backend"),
	}
	if cmd.IsSet("sudo") {
		v := cmd.Bool("sudo")
		overrides.Sudo = &v
	}
	if cmd.IsSet("strict") {
		v := cmd.Bool("strict")
		overrides.Strict = &v
	}
	if cmd.IsSet("lock-dir") {
		v := cmd.String("lock-dir")
		overrides.LockDir = &v
	}
	cfg.Merge(overrides)

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setup(cmd *cli.Command) (*app, error) {
	log.Setup(cmd.Bool("verbose"))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log.Debug("configuration loaded",
		"mount_root", cfg.MountRoot,
		"backend", cfg.Backend,
		"sudo", cfg.Sudo,
		"strict", cfg.Strict,
		"lock_dir", cfg.LockDirectory(),
	)

	runner := delegate.NewExecRunner(delegate.WithSudo(cfg.Sudo))

	builder, err := catalog.NewBuilder(cfg.Backend, runner)
	if err != nil {
		return nil, fmt.Errorf("create device backend: %w", err)
	}

	var locker lock.Locker = lock.NopLocker{}
	if dir := cfg.LockDirectory(); dir != "" {
		locker = lock.NewFileLocker(dir, cfg.LockAttempts, cfg.LockDelay)
	}

	mounter := mount.NewCommandMounter(runner, vfs.OSFS, procmounts.System{})

	d := driver.NewDriver(
		cfg.MountRoot,
		builder,
		mounter,
		driver.WithStrict(cfg.Strict),
		driver.WithMountOptions(cfg.MountOptions),
		driver.WithLocker(locker),
	)

	return &app{cfg: cfg, runner: runner, builder: builder, driver: d}, nil
}

func runShell(ctx context.Context, cmd *cli.Command) error {
	// Handle version flag
	if cmd.Bool("version") {
		fmt.Println(version.String())
		return nil
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	rl, err := shell.NewReadline(a.cfg.HistoryFile)
	if err != nil {
		return fmt.Errorf("create line editor: %w", err)
	}

	session := shell.NewSession(cwd, a.driver, a.runner, vfs.OSFS, a.cfg.Editor)
	return shell.New(session, rl).Run(ctx)
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.driver.Scan(ctx)
	if err != nil {
		return err
	}
	return catalog.Print(os.Stdout, c, cmd.String("output"))
}

// identifierArgs splits the positional arguments of mount and fstab
func identifierArgs(cmd *cli.Command) (string, string, error) {
	switch cmd.NArg() {
	case 1:
		return cmd.Args().Get(0), "", nil
	case 2:
		return cmd.Args().Get(0), cmd.Args().Get(1), nil
	default:
		return "", "", fmt.Errorf("usage: vfs %s %s", cmd.Name, cmd.ArgsUsage)
	}
}

func runMount(ctx context.Context, cmd *cli.Command) error {
	id, mountPoint, err := identifierArgs(cmd)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.driver.Mount(ctx, driver.MountRequest{Identifier: id, MountPoint: mountPoint})
	if err != nil {
		return err
	}

	fmt.Println(out.MountPoint)
	return nil
}

func runUmount(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("usage: vfs umount %s", cmd.ArgsUsage)
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	path, err := a.driver.Unmount(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}

func runFstab(ctx context.Context, cmd *cli.Command) error {
	id, mountPoint, err := identifierArgs(cmd)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.driver.FstabEntry(ctx, id, mountPoint)
	if err != nil {
		return err
	}

	fmt.Println(entry.String())
	return nil
}

func runMounts(_ context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.driver.Mounts()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.Device, e.MountPoint, e.FSType)
	}
	return nil
}
