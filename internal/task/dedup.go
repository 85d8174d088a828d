package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DedupIndex remembers which task first claimed a dedup key, so duplicate
// submissions within the window report the same task ID as the original.
type DedupIndex interface {
	// Claim records id as the owner of key for window unless another task
	// already owns it. It returns the owning task ID.
	Claim(ctx context.Context, key string, id uuid.UUID, window time.Duration) (uuid.UUID, error)
}

type dedupClaim struct {
	taskID    uuid.UUID
	expiresAt time.Time
}

// MemoryDedupIndex is an in-process DedupIndex.
type MemoryDedupIndex struct {
	mu     sync.Mutex
	claims map[string]dedupClaim
	now    func() time.Time
}

var _ DedupIndex = (*MemoryDedupIndex)(nil)

// NewMemoryDedupIndex creates an empty dedup index.
func NewMemoryDedupIndex() *MemoryDedupIndex {
	return &MemoryDedupIndex{
		claims: make(map[string]dedupClaim),
		now:    time.Now,
	}
}

// Claim implements DedupIndex.
func (idx *MemoryDedupIndex) Claim(ctx context.Context, key string, id uuid.UUID, window time.Duration) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := idx.now()
	for k, c := range idx.claims {
		if !now.Before(c.expiresAt) {
			delete(idx.claims, k)
		}
	}

	if c, ok := idx.claims[key]; ok {
		return c.taskID, nil
	}

	idx.claims[key] = dedupClaim{taskID: id, expiresAt: now.Add(window)}
	return id, nil
}
