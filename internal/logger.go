package internal

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger returns a JSON logger in prod and a console logger otherwise.
func NewLogger(w io.Writer, env string, level string) zerolog.Logger {
	// Validate log level
	l := zerolog.InfoLevel
	switch level {
	case "debug":
		l = zerolog.DebugLevel
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	case "info":
	default:
		log.Warn().Str("value", level).Msg("Invalid log level. Using default level: info")
	}

	var out io.Writer = w
	if env != "prod" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(out).Level(l).With().Timestamp().Logger()
}
