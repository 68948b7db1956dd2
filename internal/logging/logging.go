// Package logging builds the phuslu loggers shared by the runner, page
// objects and browser bindings.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
	"golang.org/x/term"
)

// New returns a logger writing to w at level. Console output is colored
// only when w is a terminal; json selects newline-delimited JSON entries.
func New(w io.Writer, level string, json bool) *log.Logger {
	logger := &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "15:04:05.000",
	}
	if json {
		logger.TimeFormat = ""
		logger.Writer = &log.IOWriter{Writer: w}
		return logger
	}

	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	logger.Writer = &log.ConsoleWriter{
		Writer:         w,
		ColorOutput:    color,
		EndWithMessage: true,
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrNop returns logger, or a Nop logger when it is nil.
func OrNop(logger *log.Logger) *log.Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}
