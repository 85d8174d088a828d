package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IdempotencyState is the processing state recorded for a task ID.
type IdempotencyState string

const (
	// IdempotencyInProgress marks a task some worker is executing
	IdempotencyInProgress IdempotencyState = "in_progress"

	// IdempotencyCompleted marks a task whose side effects have happened
	IdempotencyCompleted IdempotencyState = "completed"
)

// IdempotencyRecord tracks whether a task has been processed.
type IdempotencyRecord struct {
	TaskID    uuid.UUID
	State     IdempotencyState
	Owner     string
	UpdatedAt time.Time

	// ExpiresAt bounds an in-progress claim; zero for completed records
	// without retention.
	ExpiresAt time.Time
}

// Live reports whether an in-progress record still blocks other workers.
func (r *IdempotencyRecord) Live(now time.Time) bool {
	return r.State == IdempotencyInProgress && now.Before(r.ExpiresAt)
}

// IdempotencyStore is a durable record of processed task IDs. Every
// transition is conditional: a completed record is never downgraded, and
// at most one worker holds a live in-progress claim for an ID.
type IdempotencyStore interface {
	// Get returns the record for taskID, or ErrRecordNotFound.
	Get(ctx context.Context, taskID uuid.UUID) (*IdempotencyRecord, error)

	// Acquire creates an in-progress claim for owner lasting lease. It
	// succeeds when no record exists or the existing claim has expired, and
	// reports false when the task is completed or claimed by a live owner.
	Acquire(ctx context.Context, taskID uuid.UUID, owner string, lease time.Duration) (bool, error)

	// MarkCompleted records that the task's side effects have happened.
	// Marking an already completed task is a no-op.
	MarkCompleted(ctx context.Context, taskID uuid.UUID) error

	// Release drops an in-progress claim held by owner so a redelivery can
	// retry immediately. Completed records and other owners' claims are kept.
	Release(ctx context.Context, taskID uuid.UUID, owner string) error
}

// MemoryIdempotencyStore is an in-process IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]IdempotencyRecord
	now     func() time.Time
}

var _ IdempotencyStore = (*MemoryIdempotencyStore)(nil)

// NewMemoryIdempotencyStore creates an empty store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[uuid.UUID]IdempotencyRecord),
		now:     time.Now,
	}
}

// Get implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Get(ctx context.Context, taskID uuid.UUID) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

// Acquire implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Acquire(ctx context.Context, taskID uuid.UUID, owner string, lease time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[taskID]; ok {
		if rec.State == IdempotencyCompleted || rec.Live(now) {
			return false, nil
		}
	}

	s.records[taskID] = IdempotencyRecord{
		TaskID:    taskID,
		State:     IdempotencyInProgress,
		Owner:     owner,
		UpdatedAt: now,
		ExpiresAt: now.Add(lease),
	}
	return true, nil
}

// MarkCompleted implements IdempotencyStore.
func (s *MemoryIdempotencyStore) MarkCompleted(ctx context.Context, taskID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[taskID]; ok && rec.State == IdempotencyCompleted {
		return nil
	}

	s.records[taskID] = IdempotencyRecord{
		TaskID:    taskID,
		State:     IdempotencyCompleted,
		UpdatedAt: s.now(),
	}
	return nil
}

// Release implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Release(ctx context.Context, taskID uuid.UUID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if ok && rec.State == IdempotencyInProgress && rec.Owner == owner {
		delete(s.records, taskID)
	}
	return nil
}
