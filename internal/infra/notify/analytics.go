// File: internal/infra/notify/analytics.go
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"course-marketplace/internal/domain/ports/adapter"
)

var _ adapter.Analytics = (*LogAnalytics)(nil)

// LogAnalytics emits settlement events as structured log lines. A real
// analytics backend can replace it behind the same port without touching
// the settlement engine.
type LogAnalytics struct {
	log *zerolog.Logger
}

func NewLogAnalytics(logger *zerolog.Logger) *LogAnalytics {
	return &LogAnalytics{log: logger}
}

func (a *LogAnalytics) Track(ctx context.Context, event string, props map[string]any) error {
	a.log.Info().Str("event", event).Fields(props).Msg("analytics")
	return nil
}
