package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/manifoldco/promptui"
	"github.com/shirou/gopsutil/v3/disk"
	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/delegate"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/driver"
)

// Session is the state one interactive session carries between commands.
// Cwd is where file delegates run; the process working directory is never
// changed.
type Session struct {
	Cwd    string
	FS     vfs.FS
	Runner delegate.Runner
	Driver *driver.Driver
	Editor string
	Out    io.Writer
	Err    io.Writer
	// Confirm asks a yes/no question
	Confirm func(label string) (bool, error)
	// Usage reports space usage for a mounted filesystem
	Usage func(path string) (*disk.UsageStat, error)
}

// NewSession creates a session rooted at cwd that talks to the terminal
func NewSession(cwd string, d *driver.Driver, runner delegate.Runner, fsys vfs.FS, editor string) *Session {
	return &Session{
		Cwd:     filepath.Clean(cwd),
		FS:      fsys,
		Runner:  runner,
		Driver:  d,
		Editor:  editor,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Confirm: PromptConfirm,
		Usage:   disk.Usage,
	}
}

// PromptConfirm asks label on the terminal. Declining or interrupting
// counts as no.
func PromptConfirm(label string) (bool, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Abs resolves path against the session directory, expanding a leading ~
func (s *Session) Abs(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Cwd, path)
}

// Chdir changes the session directory
func (s *Session) Chdir(path string) error {
	target := s.Abs(path)

	info, err := s.FS.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to change directory to %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to change directory to %s: not a directory", path)
	}

	s.Cwd = target
	return nil
}

// run starts a file delegate in the session directory with the terminal attached
func (s *Session) run(ctx context.Context, name string, args ...string) error {
	res, err := s.Runner.Run(ctx, delegate.Command{
		Name:        name,
		Args:        args,
		Dir:         s.Cwd,
		Interactive: true,
	})
	if err != nil {
		return err
	}
	if !res.Success() {
		return errors.New(res.Diagnostic(name))
	}
	return nil
}

// edit opens file in the configured editor, which may carry its own arguments
func (s *Session) edit(ctx context.Context, file string) error {
	argv, err := shlex.Split(s.Editor)
	if err != nil || len(argv) == 0 {
		return fmt.Errorf("invalid editor %q", s.Editor)
	}
	return s.run(ctx, argv[0], append(argv[1:], file)...)
}
