package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chelorossi/backend-challenge/internal/task"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultIdempotencyPrefix namespaces idempotency records.
const DefaultIdempotencyPrefix = "taskq:idempotency:"

// acquireScript creates an in-progress claim unless any record exists.
// Expired claims are gone with their key TTL.
var acquireScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'in_progress', 'owner', ARGV[1], 'updated_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// completeScript upgrades a record to completed; completed records are left alone.
var completeScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') == 'completed' then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'completed', 'owner', '', 'updated_at', ARGV[1])
if tonumber(ARGV[2]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
else
	redis.call('PERSIST', KEYS[1])
end
return 1
`)

// releaseScript drops an in-progress claim held by the given owner.
var releaseScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') == 'in_progress' and redis.call('HGET', KEYS[1], 'owner') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// IdempotencyStore is a task.IdempotencyStore backed by Redis hashes.
type IdempotencyStore struct {
	client       goredis.UniversalClient
	prefix       string
	completedTTL time.Duration
	now          func() time.Time
}

var _ task.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store. Completed records expire after
// completedTTL; zero keeps them forever.
func NewIdempotencyStore(client goredis.UniversalClient, completedTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client:       client,
		prefix:       DefaultIdempotencyPrefix,
		completedTTL: completedTTL,
		now:          time.Now,
	}
}

func (s *IdempotencyStore) key(taskID uuid.UUID) string {
	return s.prefix + taskID.String()
}

// Get implements task.IdempotencyStore.
func (s *IdempotencyStore) Get(ctx context.Context, taskID uuid.UUID) (*task.IdempotencyRecord, error) {
	key := s.key(taskID)

	var (
		fields *goredis.MapStringStringCmd
		ttl    *goredis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		fields = p.HGetAll(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}

	values := fields.Val()
	if len(values) == 0 {
		return nil, task.ErrRecordNotFound
	}

	rec := &task.IdempotencyRecord{
		TaskID: taskID,
		State:  task.IdempotencyState(values["state"]),
		Owner:  values["owner"],
	}
	if ms, err := strconv.ParseInt(values["updated_at"], 10, 64); err == nil {
		rec.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	if d := ttl.Val(); d > 0 {
		rec.ExpiresAt = s.now().Add(d).UTC()
	}

	return rec, nil
}

// Acquire implements task.IdempotencyStore.
func (s *IdempotencyStore) Acquire(ctx context.Context, taskID uuid.UUID, owner string, lease time.Duration) (bool, error) {
	if lease < time.Millisecond {
		lease = time.Millisecond
	}

	n, err := acquireScript.Run(ctx, s.client, []string{s.key(taskID)},
		owner, lease.Milliseconds(), s.now().UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("acquire idempotency claim: %w", err)
	}
	return n == 1, nil
}

// MarkCompleted implements task.IdempotencyStore.
func (s *IdempotencyStore) MarkCompleted(ctx context.Context, taskID uuid.UUID) error {
	err := completeScript.Run(ctx, s.client, []string{s.key(taskID)},
		s.now().UnixMilli(), s.completedTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return nil
}

// Release implements task.IdempotencyStore.
func (s *IdempotencyStore) Release(ctx context.Context, taskID uuid.UUID, owner string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(taskID)}, owner).Err(); err != nil {
		return fmt.Errorf("release idempotency claim: %w", err)
	}
	return nil
}
