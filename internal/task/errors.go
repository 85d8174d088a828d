package task

import (
	"errors"
	"fmt"
)

// Common errors returned by the queue engine
var (
	// ErrNoMessage is returned by Receive when no message became visible
	// within the wait time.
	ErrNoMessage = errors.New("no message available")

	// ErrQueueClosed is returned when the queue no longer accepts work.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrStaleReceipt is returned when acknowledging with a receipt whose
	// lease was handed to a later delivery.
	ErrStaleReceipt = errors.New("stale receipt handle")

	// ErrPublish marks every failure to hand a task to the queue backend.
	// Callers may retry the submission.
	ErrPublish = errors.New("failed to publish task")

	// ErrMalformedMessage is returned when a message body is not a task.
	ErrMalformedMessage = errors.New("malformed task message")

	// ErrRecordNotFound is returned by idempotency stores for unknown task IDs.
	ErrRecordNotFound = errors.New("idempotency record not found")
)

// Handler failure classes. Both are retried through redelivery; the class
// only changes how the failure is logged.
var (
	ErrTransient = errors.New("transient task failure")
	ErrPermanent = errors.New("permanent task failure")
)

// PublishError wraps a backend failure that prevented a submission from
// being queued. It matches ErrPublish with errors.Is.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPublish, e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPublish.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublish
}
