// Package util provides shared logging and session statistics.
package util

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// base is the process-wide root logger. All output goes to stderr so the
// interactive CLI owns stdout.
var base = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "02 Jan 15:04:05",
}).With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Logger returns a component-tagged logger derived from the root logger.
func Logger(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

// EnableDebug lowers the root level so debug messages are shown.
// Call before constructing component loggers.
func EnableDebug() {
	base = base.Level(zerolog.DebugLevel)
}

func init() {
	zerolog.DurationFieldUnit = time.Millisecond
}
