package revalidate

import (
	"context"
	"log/slog"
)

// LogRevalidator only records the signal. It is the sink when no broker
// or webhook is configured.
type LogRevalidator struct {
	log *slog.Logger
}

func NewLogRevalidator(log *slog.Logger) *LogRevalidator {
	return &LogRevalidator{log: log}
}

func (l *LogRevalidator) Revalidate(ctx context.Context, sig Signal) error {
	l.log.InfoContext(ctx, "revalidate",
		"paths", sig.Paths,
		"reason", sig.Reason,
	)
	return nil
}
