// Package output holds the logging setup and the console rendering helpers
// shared by the command-line front-ends.
package output

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger for the given debug level.
// Level 0 only shows warnings and errors, 1 adds debug, 2 adds trace.
func InitLogger(debug int) {
	switch {
	case debug >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case debug == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	SetLogOutput(os.Stderr)
}

// SetLogOutput redirects the global logger, e.g. into a file while the TUI
// owns the terminal.
func SetLogOutput(w io.Writer) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// GetLogger returns a child of the global logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
