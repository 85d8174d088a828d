package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultOrderingKey is the single ordering group all tasks are published to.
const DefaultOrderingKey = "task-processing"

// OutboundMessage is a message handed to the queue for publishing.
type OutboundMessage struct {
	// Body is the serialized task
	Body []byte

	// OrderingKey selects the FIFO group the message belongs to
	OrderingKey string

	// DedupKey collapses identical publishes within the dedup window.
	// An empty key disables deduplication for the message.
	DedupKey string

	// TaskID is carried alongside the body for log correlation
	TaskID uuid.UUID
}

// Delivery is a message handed to a consumer together with its lease.
type Delivery struct {
	MessageID     string
	ReceiptHandle string
	Body          []byte
	OrderingKey   string
	DedupKey      string

	// ReceiveCount is the number of times the message has been delivered,
	// including this delivery
	ReceiveCount int

	// LeaseStartedAt is no later than the moment the backend started this
	// delivery's visibility timeout. Zero when the backend cannot tell.
	LeaseStartedAt time.Time
}

// DeadLetter is a message that exceeded the maximum receive count.
type DeadLetter struct {
	MessageID      string
	Body           []byte
	OrderingKey    string
	DedupKey       string
	ReceiveCount   int
	DeadLetteredAt time.Time
}

// QueueWriter publishes messages to an ordered queue.
type QueueWriter interface {
	// Publish adds a message to the tail of its ordering group and returns
	// the message ID. A publish whose dedup key was already seen within the
	// dedup window is coalesced and returns the original message ID.
	Publish(ctx context.Context, msg OutboundMessage) (string, error)
}

// QueueReader consumes messages from an ordered queue.
type QueueReader interface {
	// Receive returns the next visible message, waiting up to the queue's
	// configured wait time. It returns ErrNoMessage when nothing became
	// available. At most one message per ordering group is leased at a time.
	Receive(ctx context.Context) (*Delivery, error)

	// Ack removes a delivered message from the queue
	Ack(ctx context.Context, d *Delivery) error

	// Nack changes the remaining lease of a delivered message so it becomes
	// visible again after delay. A negative delay leaves the lease untouched.
	Nack(ctx context.Context, d *Delivery, delay time.Duration) error
}

// OrderedQueue is the full FIFO queue capability: strict ordering within a
// group, at-least-once delivery, lease-based redelivery and dead-lettering
// after the maximum receive count.
type OrderedQueue interface {
	QueueWriter
	QueueReader
}

// DeadLetterReader gives read access to the dead-letter channel.
type DeadLetterReader interface {
	// ListDeadLetters returns up to max dead letters, oldest first.
	ListDeadLetters(ctx context.Context, max int) ([]DeadLetter, error)
}
