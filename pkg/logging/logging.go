// Package logging wraps the global zerolog logger used across the module.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
	zerolog.SetGlobalLevel(levelFromEnv())
}

// levelFromEnv reads WEBP_LOG_LEVEL ("trace", "debug", "info", ...).
func levelFromEnv() zerolog.Level {
	level, err := zerolog.ParseLevel(os.Getenv("WEBP_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

func Trace() *zerolog.Event {
	return log.Trace().Timestamp()
}

func Debug() *zerolog.Event {
	return log.Debug().Timestamp()
}

func Info() *zerolog.Event {
	return log.Info().Timestamp()
}

func Warn() *zerolog.Event {
	return log.Warn().Timestamp()
}

func Error() *zerolog.Event {
	return log.Error().Timestamp()
}

func Fatal() *zerolog.Event {
	return log.Fatal().Timestamp()
}

func With() zerolog.Context {
	return log.With()
}
