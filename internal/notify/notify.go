// Package notify publishes document status changes.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// Event is one status change.
type Event struct {
	DocumentID   uuid.UUID                  `json:"document_id"`
	Status       constants.ProcessingStatus `json:"status"`
	Progress     int                        `json:"progress"`
	ErrorMessage string                     `json:"error_message,omitempty"`
	At           time.Time                  `json:"at"`
}

// Notifier delivers events. Delivery is best effort; callers log failures
// and carry on.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(_ context.Context, ev Event) error {
	attrs := []any{"doc_id", ev.DocumentID, "status", ev.Status, "progress", ev.Progress}
	if ev.ErrorMessage != "" {
		attrs = append(attrs, "error", ev.ErrorMessage)
	}
	n.logger.Info("document.status", attrs...)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
