// Package logging wraps zerolog for matchrules. Output is console formatted
// on a terminal and JSON otherwise.
//
//	log := logging.Default()
//	log.Info().Str("match_set", "default").Int("matches", 12).Msg("Match set updated")
//
//	ctx := logging.WithSession(context.Background(), "b1946ac9")
//	logging.Ctx(ctx).Debug().Msg("Applying rules")
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is configured from the LOG_* environment at startup and
// replaced by the CLI once flags and config files are read.
var defaultLogger = NewLoggerFromConfig(ConfigFromEnv())

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Err starts an error event for err on the default logger.
func Err(err error) *zerolog.Event { return defaultLogger.Err(err) }

func consoleWriter(out io.Writer, timeFormat string, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat, NoColor: noColor}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
