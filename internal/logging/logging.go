// Package logging configures the process-wide zerolog logger from a
// verbosity level.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Verbosity levels accepted by Setup.
const (
	Quiet = "quiet"
	Info  = "info"
	Debug = "debug"
)

// Level maps a verbosity name to a zerolog level.
func Level(verbosity string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case Quiet:
		return zerolog.Disabled, nil
	case Info, "":
		return zerolog.InfoLevel, nil
	case Debug:
		return zerolog.DebugLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown verbosity %q, expected quiet, info or debug", verbosity)
}

// Setup points the global logger at w with human-readable output and sets
// the global level from verbosity.
func Setup(verbosity string, w io.Writer) error {
	level, err := Level(verbosity)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
	return nil
}
