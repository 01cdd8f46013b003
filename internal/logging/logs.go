package logging

import (
	"github.com/rs/zerolog/log"
)

// printf-style helpers over the global zerolog logger.

func Debugf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

func Errf(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

// Logf writes regardless of the configured level; tests use it to narrate.
func Logf(format string, args ...any) {
	log.Log().Msgf(format, args...)
}
