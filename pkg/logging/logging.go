// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup(slog.LevelInfo)
//	logging.SetupWriter(w, slog.LevelDebug)  // e.g. for tests
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup configures colored logging on stderr at the given level and makes
// it the slog default.
func Setup(level slog.Level) {
	SetupWriter(os.Stderr, level)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level slog.Level) {
	slog.SetDefault(New(w, level))
}

// New returns a tint-backed logger without touching the default.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  level == slog.LevelDebug,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
