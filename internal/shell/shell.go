// Package shell implements the interactive vfs prompt.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/shlex"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
)

// LineReader reads one line of input at a time.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

var (
	promptName = color.New(color.FgHiGreen)
	promptDir  = color.New(color.FgHiBlue)
)

// Shell is the read-eval-print loop around a Session
type Shell struct {
	session *Session
	reader  LineReader
}

// New creates a shell reading commands from reader
func New(s *Session, reader LineReader) *Shell {
	return &Shell{session: s, reader: reader}
}

// NewReadline creates a line editor with history and command completion.
// An empty historyFile disables history.
func NewReadline(historyFile string) (*readline.Instance, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandTable()))
	for _, c := range commandTable() {
		items = append(items, readline.PcItem(c.name))
	}

	return readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		AutoComplete:      readline.NewPrefixCompleter(items...),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
}

// Prompt renders the prompt for the current directory
func (sh *Shell) Prompt() string {
	return promptName.Sprint("vfs: ") + promptDir.Sprint(sh.session.Cwd) + " > "
}

// Run reads and executes commands until exit or end of input. Command
// failures are reported and never end the loop.
func (sh *Shell) Run(ctx context.Context) error {
	defer sh.reader.Close()

	fmt.Fprintln(sh.session.Out, "Welcome to the Virtual File System (VFS)!")
	fmt.Fprintln(sh.session.Out, "Type 'help' for a list of commands")

	for {
		sh.reader.SetPrompt(sh.Prompt())

		line, err := sh.reader.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if err := sh.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			sh.Report(err)
		}
	}
}

// Execute runs one command line
func (sh *Shell) Execute(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd := lookup(args[0])
	if cmd == nil {
		return fmt.Errorf("invalid command %q, type 'help' for a list of commands", args[0])
	}
	if len(args)-1 < cmd.minArgs {
		return &UsageError{Usage: cmd.usage}
	}

	log.Debug("executing command", "name", cmd.name, "args", args[1:], "cwd", sh.session.Cwd)
	return cmd.run(ctx, sh.session, args[1:])
}

// Report prints err as a single line
func (sh *Shell) Report(err error) {
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(sh.session.Err, usage.Error())
		return
	}
	msg := strings.ReplaceAll(strings.TrimSpace(err.Error()), "\n", " ")
	fmt.Fprintf(sh.session.Err, "error: %s\n", msg)
}
