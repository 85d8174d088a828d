package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chelorossi/backend-challenge/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type testPayload struct {
		ID     uuid.UUID `json:"id"`
		Action string    `json:"action"`
	}

	payload := testPayload{
		ID:     uuid.New(),
		Action: "test_action",
	}

	event, err := NewEvent("test_event", payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "test_event", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded testPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewDeadLetterEvent(t *testing.T) {
	payload := DeadLetterPayload{
		TaskID:       uuid.New(),
		MessageID:    "msg-1",
		OrderingKey:  "task-processing",
		ReceiveCount: 3,
		Reason:       "transient task failure",
	}

	event, err := NewDeadLetterEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeDeadLetter, event.Type)

	var decoded DeadLetterPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandler(t *testing.T) {
	handler := &MockEventHandler{}

	event, err := NewEvent("test_type", map[string]string{"key": "value"})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, 1, handler.HandledCount)
	assert.Equal(t, event, handler.LastEvent)

	expectedErr := errors.New("handler error")
	handler.HandlerError = expectedErr
	err = handler.HandleEvent(context.Background(), event)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 2, handler.HandledCount)
}

func TestLoggingHandler(t *testing.T) {
	log, buf := logger.NewTestLogger(t)
	handler := NewLoggingHandler(log)

	taskID := uuid.New()
	event, err := NewDeadLetterEvent(DeadLetterPayload{
		TaskID:       taskID,
		MessageID:    "msg-7",
		OrderingKey:  "task-processing",
		ReceiveCount: 3,
		Reason:       "boom",
	})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	entry := logger.RequireEntry(t, buf, "task moved to dead-letter channel")
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, taskID.String(), entry["task_id"])
	assert.Equal(t, "msg-7", entry["message_id"])
	assert.EqualValues(t, 3, entry["receive_count"])
	assert.Equal(t, "event_log", entry["component"])
}

func TestLoggingHandler_RejectsCorruptPayload(t *testing.T) {
	handler := NewLoggingHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	event := &Event{ID: uuid.New(), Type: TypeDeadLetter, Payload: json.RawMessage(`"nope"`)}
	assert.Error(t, handler.HandleEvent(context.Background(), event))
}
