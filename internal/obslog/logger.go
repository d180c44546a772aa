// Package obslog provides the shared structured logger for evmstage.
//
// Log-format initialization (pretty console vs. JSON, level wiring from a
// config file) is treated as an external collaborator's concern; this
// package only exposes a base logger and a level setter, keeping init
// separate from usage.
package obslog

import (
	"os"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Logger returns the shared base logger.
func Logger() *zerolog.Logger {
	return &base
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// SetLevel sets the global log level.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}
