package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsPublisher/internal/ports"
)

// Journal writes audit events to the store and mirrors them to the process log.
// A failed append is logged and swallowed.
type Journal struct {
	events ports.EventLog
	logger *slog.Logger
}

// NewJournal builds a journal; both arguments may be nil.
func NewJournal(events ports.EventLog, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Journal{events: events, logger: logger}
}

// Record appends an event with a formatted message.
func (j *Journal) Record(ctx context.Context, category, format string, args ...any) {
	if j == nil {
		return
	}
	message := fmt.Sprintf(format, args...)
	j.logger.Info(message, "category", category)
	if j.events == nil {
		return
	}
	if err := j.events.AppendEvent(ctx, category, message); err != nil {
		j.logger.Error("append event", "category", category, "error", err)
	}
}
