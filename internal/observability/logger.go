package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the global logger tagged with the node name.
func Logger(node string) zerolog.Logger {
	return log.Logger.With().Str("node", node).Logger()
}
