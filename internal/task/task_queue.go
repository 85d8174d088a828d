package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueueConfig configures a MemoryQueue.
type MemoryQueueConfig struct {
	// VisibilityTimeout is how long a delivered message stays hidden
	// before it is redelivered.
	VisibilityTimeout time.Duration

	// MaxReceiveCount is the number of deliveries after which a message
	// moves to the dead-letter channel instead of being delivered again.
	MaxReceiveCount int

	// DedupWindow is how long a dedup key suppresses identical publishes.
	DedupWindow time.Duration

	// WaitTime bounds how long Receive blocks waiting for a message.
	// Zero makes Receive return immediately.
	WaitTime time.Duration
}

// DefaultMemoryQueueConfig returns the default queue settings.
func DefaultMemoryQueueConfig() MemoryQueueConfig {
	return MemoryQueueConfig{
		VisibilityTimeout: 30 * time.Second,
		MaxReceiveCount:   3,
		DedupWindow:       5 * time.Minute,
		WaitTime:          time.Second,
	}
}

// MemoryQueueOption customizes a MemoryQueue.
type MemoryQueueOption func(*MemoryQueue)

// WithDeadLetterChannel routes dead letters to ch instead of a private channel.
func WithDeadLetterChannel(ch *MemoryDeadLetterChannel) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.deadLetters = ch
	}
}

// WithQueueLogger sets the queue's logger.
func WithQueueLogger(logger *slog.Logger) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.logger = logger
	}
}

// WithQueueClock overrides the clock used for leases and dedup expiry.
// Blocking waits in Receive still use the wall clock.
func WithQueueClock(now func() time.Time) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.now = now
	}
}

type queuedMessage struct {
	id           string
	body         []byte
	orderingKey  string
	dedupKey     string
	receiveCount int
	receipt      string
	visibleAt    time.Time
}

type dedupEntry struct {
	messageID string
	expiresAt time.Time
}

type messageGroup struct {
	messages []*queuedMessage
}

// QueueStats is a point-in-time view of a MemoryQueue.
type QueueStats struct {
	Pending      int
	InFlight     int
	Groups       int
	DeadLettered int
}

// MemoryQueue is an in-process OrderedQueue. Messages are kept in FIFO
// groups keyed by ordering key; only the head of a group is ever delivered,
// and a leased head blocks the rest of its group until it is acknowledged
// or dead-lettered. Distinct groups are served round-robin.
type MemoryQueue struct {
	mu          sync.Mutex
	config      MemoryQueueConfig
	groups      map[string]*messageGroup
	order       []string
	cursor      int
	dedup       map[string]dedupEntry
	deadLetters *MemoryDeadLetterChannel
	changed     chan struct{}
	closed      bool
	now         func() time.Time
	logger      *slog.Logger
}

var _ OrderedQueue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an in-process ordered queue. Zero config values
// fall back to the defaults, except WaitTime.
func NewMemoryQueue(config MemoryQueueConfig, opts ...MemoryQueueOption) *MemoryQueue {
	defaults := DefaultMemoryQueueConfig()
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = defaults.VisibilityTimeout
	}
	if config.MaxReceiveCount <= 0 {
		config.MaxReceiveCount = defaults.MaxReceiveCount
	}
	if config.DedupWindow <= 0 {
		config.DedupWindow = defaults.DedupWindow
	}
	if config.WaitTime < 0 {
		config.WaitTime = 0
	}

	q := &MemoryQueue{
		config:  config,
		groups:  make(map[string]*messageGroup),
		dedup:   make(map[string]dedupEntry),
		changed: make(chan struct{}),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.deadLetters == nil {
		q.deadLetters = NewMemoryDeadLetterChannel()
	}
	q.logger = q.logger.With("component", "memory_queue")

	return q
}

// DeadLetters returns the channel receiving messages that exceeded the
// maximum receive count.
func (q *MemoryQueue) DeadLetters() *MemoryDeadLetterChannel {
	return q.deadLetters
}

// Publish implements QueueWriter.
func (q *MemoryQueue) Publish(ctx context.Context, msg OutboundMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}

	now := q.now()
	q.purgeDedupLocked(now)

	if msg.DedupKey != "" {
		if entry, ok := q.dedup[msg.DedupKey]; ok {
			q.logger.Debug("coalesced duplicate publish",
				"message_id", entry.messageID,
				"task_id", msg.TaskID)
			return entry.messageID, nil
		}
	}

	orderingKey := msg.OrderingKey
	if orderingKey == "" {
		orderingKey = DefaultOrderingKey
	}

	m := &queuedMessage{
		id:          uuid.NewString(),
		body:        append([]byte(nil), msg.Body...),
		orderingKey: orderingKey,
		dedupKey:    msg.DedupKey,
		visibleAt:   now,
	}

	g, ok := q.groups[orderingKey]
	if !ok {
		g = &messageGroup{}
		q.groups[orderingKey] = g
		q.order = append(q.order, orderingKey)
	}
	g.messages = append(g.messages, m)

	if msg.DedupKey != "" {
		q.dedup[msg.DedupKey] = dedupEntry{
			messageID: m.id,
			expiresAt: now.Add(q.config.DedupWindow),
		}
	}

	q.logger.Debug("message published",
		"message_id", m.id,
		"task_id", msg.TaskID,
		"ordering_key", orderingKey)
	q.broadcastLocked()

	return m.id, nil
}

// Receive implements QueueReader.
func (q *MemoryQueue) Receive(ctx context.Context) (*Delivery, error) {
	deadline := time.Now().Add(q.config.WaitTime)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		d, wake := q.claimLocked(q.now())
		changed := q.changed
		q.mu.Unlock()

		if d != nil {
			return d, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrNoMessage
		}
		if wake > 0 && wake < remaining {
			remaining = wake
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-changed:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Ack implements QueueReader.
func (q *MemoryQueue) Ack(ctx context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	g, idx, err := q.lookupLocked(d)
	if err != nil {
		return err
	}

	g.messages = append(g.messages[:idx], g.messages[idx+1:]...)
	q.logger.Debug("message acknowledged", "message_id", d.MessageID)
	q.broadcastLocked()

	return nil
}

// Nack implements QueueReader.
func (q *MemoryQueue) Nack(ctx context.Context, d *Delivery, delay time.Duration) error {
	if delay < 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	g, idx, err := q.lookupLocked(d)
	if err != nil {
		return err
	}

	g.messages[idx].visibleAt = q.now().Add(delay)
	q.broadcastLocked()

	return nil
}

// Close stops the queue. Blocked receivers return ErrQueueClosed.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.broadcastLocked()
}

// Stats returns current queue counters.
func (q *MemoryQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	stats := QueueStats{DeadLettered: q.deadLetters.Len()}
	for _, g := range q.groups {
		if len(g.messages) == 0 {
			continue
		}
		stats.Groups++
		for _, m := range g.messages {
			if m.receipt != "" && now.Before(m.visibleAt) {
				stats.InFlight++
			} else {
				stats.Pending++
			}
		}
	}

	return stats
}

// claimLocked leases the next deliverable group head. When nothing is
// deliverable it returns the time until the earliest lease expires, or zero
// if no lease is pending.
func (q *MemoryQueue) claimLocked(now time.Time) (*Delivery, time.Duration) {
	q.compactLocked()

	var wake time.Duration
	n := len(q.order)
	for i := 0; i < n; i++ {
		idx := (q.cursor + i) % n
		g := q.groups[q.order[idx]]

		for len(g.messages) > 0 {
			head := g.messages[0]
			if now.Before(head.visibleAt) {
				if until := head.visibleAt.Sub(now); wake == 0 || until < wake {
					wake = until
				}
				break
			}

			// The previous delivery was the last one allowed
			if head.receiveCount >= q.config.MaxReceiveCount {
				g.messages = g.messages[1:]
				q.deadLetterLocked(head, now)
				continue
			}

			head.receiveCount++
			head.receipt = uuid.NewString()
			head.visibleAt = now.Add(q.config.VisibilityTimeout)
			q.cursor = (idx + 1) % n

			return &Delivery{
				MessageID:      head.id,
				ReceiptHandle:  head.receipt,
				Body:           append([]byte(nil), head.body...),
				OrderingKey:    head.orderingKey,
				DedupKey:       head.dedupKey,
				ReceiveCount:   head.receiveCount,
				LeaseStartedAt: now,
			}, 0
		}
	}

	return nil, wake
}

func (q *MemoryQueue) deadLetterLocked(m *queuedMessage, now time.Time) {
	q.deadLetters.add(DeadLetter{
		MessageID:      m.id,
		Body:           m.body,
		OrderingKey:    m.orderingKey,
		DedupKey:       m.dedupKey,
		ReceiveCount:   m.receiveCount,
		DeadLetteredAt: now,
	})

	q.logger.Warn("message moved to dead-letter channel",
		"message_id", m.id,
		"ordering_key", m.orderingKey,
		"receive_count", m.receiveCount)
}

// lookupLocked finds the message a delivery refers to and checks that the
// delivery still holds its current lease.
func (q *MemoryQueue) lookupLocked(d *Delivery) (*messageGroup, int, error) {
	if d == nil {
		return nil, 0, fmt.Errorf("%w: nil delivery", ErrStaleReceipt)
	}

	g, ok := q.groups[d.OrderingKey]
	if !ok {
		return nil, 0, fmt.Errorf("%w: message %s is no longer queued", ErrStaleReceipt, d.MessageID)
	}

	for i, m := range g.messages {
		if m.id != d.MessageID {
			continue
		}
		if m.receipt != d.ReceiptHandle {
			return nil, 0, fmt.Errorf("%w: message %s was redelivered", ErrStaleReceipt, d.MessageID)
		}
		return g, i, nil
	}

	return nil, 0, fmt.Errorf("%w: message %s is no longer queued", ErrStaleReceipt, d.MessageID)
}

// compactLocked drops empty groups so the round-robin order only holds
// groups with messages.
func (q *MemoryQueue) compactLocked() {
	kept := q.order[:0]
	for i, key := range q.order {
		if len(q.groups[key].messages) > 0 {
			kept = append(kept, key)
			continue
		}
		delete(q.groups, key)
		if i < q.cursor {
			q.cursor--
		}
	}
	q.order = kept

	if len(q.order) == 0 || q.cursor >= len(q.order) {
		q.cursor = 0
	}
}

func (q *MemoryQueue) purgeDedupLocked(now time.Time) {
	for key, entry := range q.dedup {
		if !now.Before(entry.expiresAt) {
			delete(q.dedup, key)
		}
	}
}

// broadcastLocked wakes every receiver waiting on the current change channel.
func (q *MemoryQueue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
