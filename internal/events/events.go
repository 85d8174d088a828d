package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeDeadLetter is raised when a task is routed to the dead-letter
	// channel after its final failed attempt
	TypeDeadLetter = "task.dead_lettered"
)

// Event is a typed notification raised by the queue engine.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies the payload shape
	Type string `json:"type"`

	// Payload contains the event data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// DeadLetterPayload describes a task that exhausted its delivery attempts.
type DeadLetterPayload struct {
	TaskID       uuid.UUID `json:"task_id"`
	MessageID    string    `json:"message_id"`
	OrderingKey  string    `json:"ordering_key"`
	ReceiveCount int       `json:"receive_count"`
	Reason       string    `json:"reason"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// NewDeadLetterEvent creates a TypeDeadLetter event.
func NewDeadLetterEvent(payload DeadLetterPayload) (*Event, error) {
	return NewEvent(TypeDeadLetter, payload)
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
