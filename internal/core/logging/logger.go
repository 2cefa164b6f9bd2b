package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a new logger with a component identifier that also
// carries the context hook, so events logged with .Ctx(ctx) pick up task,
// version and attempt.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger().Hook(ContextHook{})
}
