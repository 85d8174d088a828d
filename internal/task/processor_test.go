package task

import (
	"context"
	"testing"

	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProcessor_Handle(t *testing.T) {
	t.Parallel()

	p := NewProcessor(setupTestLogger())
	ctx := context.Background()

	for _, prio := range []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh} {
		err := p.Handle(ctx, domain.Task{ID: uuid.New(), Title: "t", Priority: prio})
		assert.NoError(t, err)
	}

	err := p.Handle(ctx, domain.Task{ID: uuid.New(), Title: SimulateTransientErrorTitle, Priority: domain.PriorityLow})
	assert.ErrorIs(t, err, ErrTransient)

	err = p.Handle(ctx, domain.Task{ID: uuid.New(), Title: SimulatePermanentErrorTitle, Priority: domain.PriorityLow})
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestProcessor_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewProcessor(setupTestLogger()).Handle(ctx, domain.Task{ID: uuid.New(), Title: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}
