package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/validation"
)

const (
	// DefaultConfigPath is the default location for the config file
	DefaultConfigPath = "/etc/vfs/config.toml"
	// DefaultEnvFile is the default location for the environment override file
	DefaultEnvFile = "/etc/default/vfs"
	// DefaultMountRoot is the default base directory for derived mount points
	DefaultMountRoot = "/mnt"
	// DefaultBackend is the default device enumeration backend
	DefaultBackend = catalog.BackendLsblk
	// DefaultLockDir is where per-mount-point lock files live
	DefaultLockDir = "/run/lock/vfs"
	// DefaultLockAttempts is how many times a held lock is retried
	DefaultLockAttempts = 10
	// DefaultLockDelay is the pause between lock attempts
	DefaultLockDelay = 200 * time.Millisecond
	// DefaultEditor is used by the write command
	DefaultEditor = "nano"
	// DefaultHistoryFile is the shell history file name inside the home directory
	DefaultHistoryFile = ".vfs_history"
)

// Environment variables read from the env file and the process environment
const (
	EnvMountRoot = "VFS_MOUNT_ROOT"
	EnvBackend   = "VFS_BACKEND"
	EnvSudo      = "VFS_SUDO"
	EnvStrict    = "VFS_STRICT"
	EnvLockDir   = "VFS_LOCK_DIR"
	EnvEditor    = "VFS_EDITOR"
)

// Config holds the vfs configuration
type Config struct {
	// MountRoot is the base directory for derived mount points
	MountRoot string `toml:"mount_root"`
	// Backend is the enumeration backend to use: "lsblk" or "udisks"
	Backend string `toml:"backend"`
	// Sudo prefixes privileged delegates (mount, umount, mkdir) with sudo
	Sudo bool `toml:"sudo"`
	// Strict rejects identifiers that match more than one device
	Strict bool `toml:"strict"`
	// MountOptions are passed to mount -o
	MountOptions []string `toml:"mount_options"`
	// LockDir holds the lock files; nil selects the default and "" disables locking
	LockDir *string `toml:"lock_dir"`
	// LockAttempts is how many times a held lock is retried
	LockAttempts uint `toml:"lock_attempts"`
	// LockDelay is the pause between lock attempts
	LockDelay time.Duration `toml:"lock_delay"`
	// Editor is the program run by the write command
	Editor string `toml:"editor"`
	// HistoryFile is where the shell keeps its line history
	HistoryFile string `toml:"history_file"`
}

// Overrides carries command-line values. Nil pointers and empty strings
// mean the flag was not given.
type Overrides struct {
	MountRoot string
	Backend   string
	Sudo      *bool
	Strict    *bool
	LockDir   *string
}

// Load loads configuration from a TOML file
// Returns an empty config if the file doesn't exist
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config file values with the env file at path, then
// with the process environment. A missing env file is not an error.
func (c *Config) ApplyEnv(path string) error {
	values := map[string]string{}
	if path != "" {
		fileValues, err := godotenv.Read(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read env file: %w", err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, key := range []string{EnvMountRoot, EnvBackend, EnvSudo, EnvStrict, EnvLockDir, EnvEditor} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	if v, ok := values[EnvMountRoot]; ok && v != "" {
		c.MountRoot = v
	}
	if v, ok := values[EnvBackend]; ok && v != "" {
		c.Backend = v
	}
	if v, ok := values[EnvEditor]; ok && v != "" {
		c.Editor = v
	}
	if v, ok := values[EnvLockDir]; ok {
		c.LockDir = &v
	}
	if v, ok := values[EnvSudo]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSudo, err)
		}
		c.Sudo = b
	}
	if v, ok := values[EnvStrict]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrict, err)
		}
		c.Strict = b
	}

	return nil
}

// Merge merges CLI flags into the config, with CLI flags taking precedence
// over config file values. Unset CLI values are ignored.
func (c *Config) Merge(o Overrides) {
	if o.MountRoot != "" {
		c.MountRoot = o.MountRoot
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Sudo != nil {
		c.Sudo = *o.Sudo
	}
	if o.Strict != nil {
		c.Strict = *o.Strict
	}
	if o.LockDir != nil {
		dir := *o.LockDir
		c.LockDir = &dir
	}
}

// ApplyDefaults applies default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.MountRoot == "" {
		c.MountRoot = DefaultMountRoot
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.LockDir == nil {
		dir := DefaultLockDir
		c.LockDir = &dir
	}
	if c.LockAttempts == 0 {
		c.LockAttempts = DefaultLockAttempts
	}
	if c.LockDelay <= 0 {
		c.LockDelay = DefaultLockDelay
	}
	if c.Editor == "" {
		c.Editor = DefaultEditor
	}
	if c.HistoryFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.HistoryFile = filepath.Join(home, DefaultHistoryFile)
		}
	}
	c.MountRoot = filepath.Clean(c.MountRoot)
}

// LockDirectory returns the lock directory, or "" when locking is disabled
func (c *Config) LockDirectory() string {
	if c.LockDir == nil {
		return ""
	}
	return *c.LockDir
}

// Validate validates the configuration and reports every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	if !filepath.IsAbs(c.MountRoot) {
		result = multierror.Append(result, fmt.Errorf("mount_root must be an absolute path, got %q", c.MountRoot))
	}

	if c.Backend != catalog.BackendLsblk && c.Backend != catalog.BackendUDisks {
		result = multierror.Append(result, fmt.Errorf("backend must be %q or %q, got %q",
			catalog.BackendLsblk, catalog.BackendUDisks, c.Backend))
	}

	for _, opt := range c.MountOptions {
		if err := validation.ValidateMountOption(opt); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if dir := c.LockDirectory(); dir != "" && !filepath.IsAbs(dir) {
		result = multierror.Append(result, fmt.Errorf("lock_dir must be an absolute path, got %q", dir))
	}

	if c.Editor == "" {
		result = multierror.Append(result, fmt.Errorf("editor must not be empty"))
	}

	return result.ErrorOrNil()
}
