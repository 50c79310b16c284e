package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the service logger: human-readable in development, JSON elsewhere
func New(environment string) zerolog.Logger {
	return NewWithWriter(environment, os.Stdout)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(environment string, w io.Writer) zerolog.Logger {
	if environment == "dev" || environment == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", "nutricoach-relay").
		Logger()
}
