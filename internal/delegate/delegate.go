package delegate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
)

// Command describes one invocation of an external utility. Arguments are
// always passed as a vector; nothing is ever interpreted by a shell.
type Command struct {
	// Name is the executable, looked up in PATH
	Name string
	// Args are the arguments passed verbatim
	Args []string
	// Dir is the working directory; empty means the current process directory
	Dir string
	// Privileged commands are prefixed with sudo when the runner is configured for it
	Privileged bool
	// Interactive commands inherit the terminal instead of having output captured
	Interactive bool
}

// Argv returns the full argument vector, without any sudo prefix
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result holds what a finished process reported. A non-zero ExitCode is not
// an error at this level: callers decide what a failure means to them.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the process exited with status 0
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Diagnostic returns the trimmed error stream, falling back to a generic
// message mentioning the exit status when the process wrote nothing.
func (r *Result) Diagnostic(name string) string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s exited with status %d", name, r.ExitCode)
}

// Runner runs delegate processes and blocks until they exit.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner implements Runner with os/exec
type ExecRunner struct {
	sudo   bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// ExecRunnerOption is a functional option for ExecRunner
type ExecRunnerOption func(*ExecRunner)

// WithSudo prefixes privileged commands with sudo
func WithSudo(enabled bool) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.sudo = enabled
	}
}

// WithStdio sets the streams attached to interactive commands
func WithStdio(in io.Reader, out, errOut io.Writer) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.stdin = in
		r.stdout = out
		r.stderr = errOut
	}
}

// NewExecRunner creates a runner that executes commands on the host
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command. The returned error is only set when the process
// could not be started or waited for; exit statuses are reported in Result.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	argv := c.Argv()
	if c.Privileged && r.sudo {
		argv = append([]string{"sudo", "--"}, argv...)
	}

	log.Debug("running delegate", "argv", argv, "dir", c.Dir, "interactive", c.Interactive)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = r.stdin
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("run %s: %w", argv[0], err)
	}

	log.Debug("delegate finished", "name", c.Name, "exit", res.ExitCode)
	return res, nil
}
