package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency level of a task.
type Priority string

// Supported priority levels
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the supported levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ParsePriority converts a string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Task is the unit of work accepted by the API and processed asynchronously.
// A Task is a value: once created by ValidateSubmission its fields are never
// modified, and its ID is never reused.
type Task struct {
	ID          uuid.UUID
	Title       string
	Description string
	Priority    Priority
	// DueDate is nil when no due date was supplied.
	DueDate *time.Time
}

// HasDueDate reports whether a due date was supplied.
func (t Task) HasDueDate() bool {
	return t.DueDate != nil
}
