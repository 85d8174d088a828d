package task

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Envelope is the unit transported through the queue.
type Envelope struct {
	Task         domain.Task
	OrderingKey  string
	DedupKey     string
	ReceiveCount int
}

// taskMessage is the JSON body of a queued task.
type taskMessage struct {
	TaskID      string  `json:"task_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// canonicalTask holds only the user-supplied fields, in a fixed order.
type canonicalTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

// EncodeTask serializes a task into a queue message body.
func EncodeTask(t domain.Task) ([]byte, error) {
	msg := taskMessage{
		TaskID:      t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
	}
	if t.HasDueDate() {
		due := t.DueDate.UTC().Format(time.RFC3339Nano)
		msg.DueDate = &due
	}

	return json.Marshal(msg)
}

// DecodeTask parses a queue message body back into a task.
func DecodeTask(body []byte) (domain.Task, error) {
	var msg taskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.Task{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	id, err := uuid.Parse(msg.TaskID)
	if err != nil || id == uuid.Nil {
		return domain.Task{}, fmt.Errorf("%w: missing or invalid task_id", ErrMalformedMessage)
	}

	priority, err := domain.ParsePriority(msg.Priority)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	t := domain.Task{
		ID:          id,
		Title:       msg.Title,
		Description: msg.Description,
		Priority:    priority,
	}
	if msg.DueDate != nil && *msg.DueDate != "" {
		due, err := domain.ParseDueDate(*msg.DueDate)
		if err != nil {
			return domain.Task{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		t.DueDate = &due
	}

	return t, nil
}

// DedupKey derives the deduplication key from the task's user-supplied
// fields. The ID is excluded, so two submissions with the same content map
// to the same key.
func DedupKey(t domain.Task) string {
	c := canonicalTask{
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
	}
	if t.HasDueDate() {
		c.DueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
	}

	// Marshaling a flat struct of strings cannot fail
	b, _ := json.Marshal(c)
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DecodeEnvelope rebuilds the envelope carried by a delivery.
func DecodeEnvelope(d *Delivery) (Envelope, error) {
	t, err := DecodeTask(d.Body)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Task:         t,
		OrderingKey:  d.OrderingKey,
		DedupKey:     d.DedupKey,
		ReceiveCount: d.ReceiveCount,
	}, nil
}
