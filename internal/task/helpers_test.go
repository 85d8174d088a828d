package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/chelorossi/backend-challenge/internal/events"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// fakeClock is a manually advanced clock for lease and window tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTask(t *testing.T, title string) domain.Task {
	t.Helper()
	tk, err := domain.ValidateSubmission(domain.Submission{
		Title:       title,
		Description: "description of " + title,
		Priority:    "medium",
	})
	require.NoError(t, err)
	return tk
}

// newFakeClockQueue returns a non-blocking queue driven by clock
func newFakeClockQueue(clock *fakeClock) *MemoryQueue {
	return NewMemoryQueue(MemoryQueueConfig{
		VisibilityTimeout: 30 * time.Second,
		MaxReceiveCount:   3,
		DedupWindow:       5 * time.Minute,
	}, WithQueueClock(clock.Now), WithQueueLogger(setupTestLogger()))
}

func publishTask(t *testing.T, q QueueWriter, tk domain.Task, dedupKey string) string {
	t.Helper()
	body, err := EncodeTask(tk)
	require.NoError(t, err)
	id, err := q.Publish(context.Background(), OutboundMessage{
		Body:        body,
		OrderingKey: DefaultOrderingKey,
		DedupKey:    dedupKey,
		TaskID:      tk.ID,
	})
	require.NoError(t, err)
	return id
}

// recordingHandler captures emitted events
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.Event
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
