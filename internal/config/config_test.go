package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.toml", `
mount_root = "/media"
backend = "udisks"
sudo = true
strict = true
mount_options = ["noatime", "uid=1000"]
lock_dir = ""
lock_attempts = 3
lock_delay = "50ms"
editor = "vi"
history_file = "/tmp/history"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/media", cfg.MountRoot)
	assert.Equal(t, "udisks", cfg.Backend)
	assert.True(t, cfg.Sudo)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []string{"noatime", "uid=1000"}, cfg.MountOptions)
	require.NotNil(t, cfg.LockDir)
	assert.Equal(t, "", *cfg.LockDir)
	assert.Equal(t, uint(3), cfg.LockAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.LockDelay)
	assert.Equal(t, "vi", cfg.Editor)
	assert.Equal(t, "/tmp/history", cfg.HistoryFile)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeFile(t, "config.toml", `mount_root = `)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestApplyEnv(t *testing.T) {
	path := writeFile(t, "vfs.env", `
VFS_MOUNT_ROOT=/media/usb
VFS_BACKEND=udisks
VFS_SUDO=true
VFS_LOCK_DIR=
`)

	cfg := &Config{MountRoot: "/mnt", Backend: "lsblk", Editor: "vi"}
	t.Setenv(EnvEditor, "emacs")
	t.Setenv(EnvStrict, "1")

	require.NoError(t, cfg.ApplyEnv(path))
	assert.Equal(t, "/media/usb", cfg.MountRoot)
	assert.Equal(t, "udisks", cfg.Backend)
	assert.True(t, cfg.Sudo)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "emacs", cfg.Editor)
	require.NotNil(t, cfg.LockDir)
	assert.Equal(t, "", cfg.LockDirectory())
}

func TestApplyEnv_ProcessEnvironmentWins(t *testing.T) {
	path := writeFile(t, "vfs.env", "VFS_MOUNT_ROOT=/from/file\n")
	t.Setenv(EnvMountRoot, "/from/env")

	cfg := &Config{}
	require.NoError(t, cfg.ApplyEnv(path))
	assert.Equal(t, "/from/env", cfg.MountRoot)
}

func TestApplyEnv_MissingFile(t *testing.T) {
	cfg := &Config{MountRoot: "/mnt"}
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing")))
	assert.Equal(t, "/mnt", cfg.MountRoot)
}

func TestApplyEnv_BadBool(t *testing.T) {
	path := writeFile(t, "vfs.env", "VFS_SUDO=maybe\n")
	cfg := &Config{}
	err := cfg.ApplyEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSudo)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		initial   Config
		overrides Overrides
		expected  Config
	}{
		{
			name:      "CLI overrides all",
			initial:   Config{MountRoot: "/mnt", Backend: "lsblk"},
			overrides: Overrides{MountRoot: "/media", Backend: "udisks", Sudo: boolPtr(true), Strict: boolPtr(true), LockDir: strPtr("/tmp/locks")},
			expected:  Config{MountRoot: "/media", Backend: "udisks", Sudo: true, Strict: true, LockDir: strPtr("/tmp/locks")},
		},
		{
			name:      "empty overrides keep config",
			initial:   Config{MountRoot: "/mnt", Backend: "udisks", Sudo: true},
			overrides: Overrides{},
			expected:  Config{MountRoot: "/mnt", Backend: "udisks", Sudo: true},
		},
		{
			name:      "false flag turns off",
			initial:   Config{Sudo: true, Strict: true},
			overrides: Overrides{Sudo: boolPtr(false)},
			expected:  Config{Sudo: false, Strict: true},
		},
		{
			name:      "empty lock dir disables locking",
			initial:   Config{LockDir: strPtr("/run/lock/vfs")},
			overrides: Overrides{LockDir: strPtr("")},
			expected:  Config{LockDir: strPtr("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			cfg.Merge(tt.overrides)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultMountRoot, cfg.MountRoot)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, DefaultLockDir, cfg.LockDirectory())
	assert.Equal(t, uint(DefaultLockAttempts), cfg.LockAttempts)
	assert.Equal(t, DefaultLockDelay, cfg.LockDelay)
	assert.Equal(t, DefaultEditor, cfg.Editor)
	assert.False(t, cfg.Sudo)
	assert.False(t, cfg.Strict)
}

func TestApplyDefaults_KeepsValues(t *testing.T) {
	cfg := &Config{MountRoot: "/media/", Backend: "udisks", LockDir: strPtr(""), Editor: "vi", HistoryFile: "/tmp/h"}
	cfg.ApplyDefaults()

	assert.Equal(t, "/media", cfg.MountRoot)
	assert.Equal(t, "udisks", cfg.Backend)
	assert.Equal(t, "", cfg.LockDirectory())
	assert.Equal(t, "vi", cfg.Editor)
	assert.Equal(t, "/tmp/h", cfg.HistoryFile)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "udisks backend",
			mutate: func(c *Config) { c.Backend = "udisks" },
		},
		{
			name:      "relative mount root",
			mutate:    func(c *Config) { c.MountRoot = "mnt" },
			wantErr:   true,
			errSubstr: []string{"mount_root"},
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Backend = "blkid" },
			wantErr:   true,
			errSubstr: []string{"backend must be"},
		},
		{
			name:      "bad mount option",
			mutate:    func(c *Config) { c.MountOptions = []string{"ro,noexec"} },
			wantErr:   true,
			errSubstr: []string{"invalid mount option"},
		},
		{
			name:      "relative lock dir",
			mutate:    func(c *Config) { c.LockDir = strPtr("locks") },
			wantErr:   true,
			errSubstr: []string{"lock_dir"},
		},
		{
			name: "every problem reported",
			mutate: func(c *Config) {
				c.MountRoot = "mnt"
				c.Backend = "blkid"
				c.Editor = ""
			},
			wantErr:   true,
			errSubstr: []string{"mount_root", "backend must be", "editor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, s := range tt.errSubstr {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}
