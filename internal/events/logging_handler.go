package events

import (
	"context"
	"log/slog"
)

// LoggingHandler reports events as structured log records. Dead letters are
// logged at error level so they surface as alerts.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger.With("component", "event_log")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	if event.Type != TypeDeadLetter {
		h.logger.InfoContext(ctx, "event received",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var payload DeadLetterPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}

	h.logger.ErrorContext(ctx, "task moved to dead-letter channel",
		"event_id", event.ID,
		"task_id", payload.TaskID,
		"message_id", payload.MessageID,
		"ordering_key", payload.OrderingKey,
		"receive_count", payload.ReceiveCount,
		"reason", payload.Reason)
	return nil
}
