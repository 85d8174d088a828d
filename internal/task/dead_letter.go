package task

import (
	"context"
	"sync"
)

// MemoryDeadLetterChannel stores dead letters in process.
type MemoryDeadLetterChannel struct {
	mu      sync.Mutex
	letters []DeadLetter
}

var _ DeadLetterReader = (*MemoryDeadLetterChannel)(nil)

// NewMemoryDeadLetterChannel creates an empty dead-letter channel.
func NewMemoryDeadLetterChannel() *MemoryDeadLetterChannel {
	return &MemoryDeadLetterChannel{}
}

func (c *MemoryDeadLetterChannel) add(dl DeadLetter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.letters = append(c.letters, dl)
}

// ListDeadLetters implements DeadLetterReader. A max of zero or less
// returns every dead letter.
func (c *MemoryDeadLetterChannel) ListDeadLetters(ctx context.Context, max int) ([]DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.letters)
	if max > 0 && max < n {
		n = max
	}

	out := make([]DeadLetter, n)
	copy(out, c.letters[:n])
	return out, nil
}

// Len returns the number of dead letters.
func (c *MemoryDeadLetterChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.letters)
}
