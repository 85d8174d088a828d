package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chelorossi/backend-challenge/internal/platform/logger"
	"github.com/chelorossi/backend-challenge/internal/store"
	"github.com/chelorossi/backend-challenge/internal/task"
	"github.com/google/uuid"
)

const (
	getRecordQuery = `
		SELECT state, owner, updated_at, expires_at
		FROM task_idempotency
		WHERE task_id = $1
		  AND (state = 'in_progress' OR expires_at IS NULL OR expires_at > $2)
	`

	// An existing row is only taken over when it is an expired claim or a
	// completed record past its retention.
	acquireQuery = `
		INSERT INTO task_idempotency (task_id, state, owner, updated_at, expires_at)
		VALUES ($1, 'in_progress', $2, $3, $4)
		ON CONFLICT (task_id) DO UPDATE
		SET state = 'in_progress',
		    owner = EXCLUDED.owner,
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at
		WHERE task_idempotency.expires_at IS NOT NULL
		  AND task_idempotency.expires_at <= EXCLUDED.updated_at
	`

	markCompletedQuery = `
		INSERT INTO task_idempotency (task_id, state, owner, updated_at, expires_at)
		VALUES ($1, 'completed', '', $2, $3)
		ON CONFLICT (task_id) DO UPDATE
		SET state = 'completed',
		    owner = '',
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at
		WHERE task_idempotency.state <> 'completed'
	`

	releaseQuery = `
		DELETE FROM task_idempotency
		WHERE task_id = $1 AND state = 'in_progress' AND owner = $2
	`

	deleteExpiredQuery = `
		DELETE FROM task_idempotency
		WHERE expires_at IS NOT NULL AND expires_at <= $1
	`
)

// IdempotencyStore implements task.IdempotencyStore on the task_idempotency
// table. Every transition is a single conditional statement.
type IdempotencyStore struct {
	db           store.DBTX
	completedTTL time.Duration
	now          func() time.Time
}

var _ task.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store. Completed records expire after
// completedTTL; zero keeps them forever.
func NewIdempotencyStore(db store.DBTX, completedTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		db:           db,
		completedTTL: completedTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Get implements task.IdempotencyStore.
func (s *IdempotencyStore) Get(ctx context.Context, taskID uuid.UUID) (*task.IdempotencyRecord, error) {
	var (
		state     string
		expiresAt sql.NullTime
		rec       = task.IdempotencyRecord{TaskID: taskID}
	)

	err := s.db.QueryRowContext(ctx, getRecordQuery, taskID, s.now()).
		Scan(&state, &rec.Owner, &rec.UpdatedAt, &expiresAt)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, task.ErrRecordNotFound
		}
		logger.FromContext(ctx).Error("failed to get idempotency record",
			"task_id", taskID,
			"error", err)
		return nil, store.NewStoreError("idempotency_record", "get", "query failed", MapError(err))
	}

	rec.State = task.IdempotencyState(state)
	if expiresAt.Valid {
		rec.ExpiresAt = expiresAt.Time
	}
	return &rec, nil
}

// Acquire implements task.IdempotencyStore.
func (s *IdempotencyStore) Acquire(ctx context.Context, taskID uuid.UUID, owner string, lease time.Duration) (bool, error) {
	now := s.now()

	result, err := s.db.ExecContext(ctx, acquireQuery, taskID, owner, now, now.Add(lease))
	if err != nil {
		logger.FromContext(ctx).Error("failed to acquire idempotency claim",
			"task_id", taskID,
			"error", err)
		return false, store.NewStoreError("idempotency_record", "acquire", "insert failed", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// MarkCompleted implements task.IdempotencyStore.
func (s *IdempotencyStore) MarkCompleted(ctx context.Context, taskID uuid.UUID) error {
	now := s.now()

	var expiresAt sql.NullTime
	if s.completedTTL > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.completedTTL), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, markCompletedQuery, taskID, now, expiresAt); err != nil {
		logger.FromContext(ctx).Error("failed to mark task completed",
			"task_id", taskID,
			"error", err)
		return store.NewStoreError("idempotency_record", "complete", "upsert failed", MapError(err))
	}
	return nil
}

// Release implements task.IdempotencyStore.
func (s *IdempotencyStore) Release(ctx context.Context, taskID uuid.UUID, owner string) error {
	if _, err := s.db.ExecContext(ctx, releaseQuery, taskID, owner); err != nil {
		return store.NewStoreError("idempotency_record", "release", "delete failed", MapError(err))
	}
	return nil
}

// DeleteExpired removes lapsed claims and completed records past their
// retention, returning how many rows were removed.
func (s *IdempotencyStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, deleteExpiredQuery, s.now())
	if err != nil {
		return 0, store.NewStoreError("idempotency_record", "purge", "delete failed", MapError(err))
	}
	return result.RowsAffected()
}

// RunJanitor returns a function suitable for an errgroup that calls
// DeleteExpired every interval until ctx is done.
func (s *IdempotencyStore) RunJanitor(ctx context.Context, interval time.Duration, log *slog.Logger) func() error {
	return func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := s.DeleteExpired(ctx)
				if err != nil {
					log.Warn("failed to purge expired idempotency records", "error", err)
					continue
				}
				if n > 0 {
					log.Info("purged expired idempotency records", "count", n)
				}
			}
		}
	}
}
