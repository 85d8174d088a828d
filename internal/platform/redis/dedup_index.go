package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/chelorossi/backend-challenge/internal/task"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultDedupPrefix namespaces dedup claims.
const DefaultDedupPrefix = "taskq:dedup:"

// claimScript stores ARGV[1] under KEYS[1] unless a claim exists, and
// returns the owning value.
var claimScript = goredis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return ARGV[1]
`)

// DedupIndex is a task.DedupIndex shared by every producer instance.
type DedupIndex struct {
	client goredis.UniversalClient
	prefix string
}

var _ task.DedupIndex = (*DedupIndex)(nil)

// NewDedupIndex creates a dedup index.
func NewDedupIndex(client goredis.UniversalClient) *DedupIndex {
	return &DedupIndex{client: client, prefix: DefaultDedupPrefix}
}

// Claim implements task.DedupIndex.
func (d *DedupIndex) Claim(ctx context.Context, key string, id uuid.UUID, window time.Duration) (uuid.UUID, error) {
	if window < time.Millisecond {
		window = time.Millisecond
	}

	owner, err := claimScript.Run(ctx, d.client, []string{d.prefix + key},
		id.String(), window.Milliseconds()).Text()
	if err != nil {
		return uuid.Nil, fmt.Errorf("claim dedup key: %w", err)
	}

	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt dedup claim %q: %w", key, err)
	}
	return ownerID, nil
}
