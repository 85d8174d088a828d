package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chelorossi/backend-challenge/internal/domain"
)

// Titles that make the Processor fail on purpose, for exercising the retry
// and dead-letter paths end to end.
const (
	SimulateTransientErrorTitle = "__SIMULATE_TRANSIENT_ERROR__"
	SimulatePermanentErrorTitle = "__SIMULATE_PERMANENT_ERROR__"
)

// Handler executes the business logic for one task. A nil error means the
// task's side effects have happened.
type Handler interface {
	Handle(ctx context.Context, t domain.Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t domain.Task) error

// Handle calls f(ctx, t).
func (f HandlerFunc) Handle(ctx context.Context, t domain.Task) error {
	return f(ctx, t)
}

// Processor is the default Handler. It records the task by priority.
type Processor struct {
	logger *slog.Logger
}

var _ Handler = (*Processor)(nil)

// NewProcessor creates a Processor.
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: logger.With("component", "task_processor")}
}

// Handle implements Handler.
func (p *Processor) Handle(ctx context.Context, t domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch t.Title {
	case SimulateTransientErrorTitle:
		return fmt.Errorf("%w: simulated for task %s", ErrTransient, t.ID)
	case SimulatePermanentErrorTitle:
		return fmt.Errorf("%w: simulated for task %s", ErrPermanent, t.ID)
	}

	attrs := []any{
		"task_id", t.ID,
		"title", t.Title,
		"priority", t.Priority,
	}
	if t.HasDueDate() {
		attrs = append(attrs, "due_date", *t.DueDate)
	}

	switch t.Priority {
	case domain.PriorityHigh:
		p.logger.WarnContext(ctx, "processing high priority task", attrs...)
	case domain.PriorityMedium:
		p.logger.InfoContext(ctx, "processing medium priority task", attrs...)
	default:
		p.logger.DebugContext(ctx, "processing low priority task", attrs...)
	}

	return nil
}
