package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = newLogger(os.Stderr, zerolog.WarnLevel)

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Setup configures the package logger. Verbose enables debug output,
// otherwise only warnings and errors reach stderr so they do not get
// mixed with the shell output.
func Setup(verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = newLogger(os.Stderr, level)
}

// SetOutput redirects log output, keeping the current level
func SetOutput(w io.Writer) {
	logger = newLogger(w, logger.GetLevel())
}

// Debug logs at debug level with alternating key/value pairs
func Debug(msg string, args ...any) {
	emit(logger.Debug(), msg, args)
}

// Info logs at info level with alternating key/value pairs
func Info(msg string, args ...any) {
	emit(logger.Info(), msg, args)
}

// Warn logs at warn level with alternating key/value pairs
func Warn(msg string, args ...any) {
	emit(logger.Warn(), msg, args)
}

// Error logs at error level with alternating key/value pairs
func Error(msg string, args ...any) {
	emit(logger.Error(), msg, args)
}

func emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args) > 0 {
		e = e.Fields(args)
	}
	e.Msg(msg)
}
