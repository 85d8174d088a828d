package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/google/uuid"
)

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	// OrderingKey is the group every task is published to
	OrderingKey string

	// DedupWindow is how long identical submissions are coalesced
	DedupWindow time.Duration
}

// Producer publishes validated tasks to the ordered queue.
type Producer struct {
	queue  QueueWriter
	dedup  DedupIndex
	config ProducerConfig
	logger *slog.Logger
}

// NewProducer creates a Producer. Zero config values fall back to the
// queue defaults.
func NewProducer(queue QueueWriter, dedup DedupIndex, config ProducerConfig, logger *slog.Logger) *Producer {
	if config.OrderingKey == "" {
		config.OrderingKey = DefaultOrderingKey
	}
	if config.DedupWindow <= 0 {
		config.DedupWindow = DefaultMemoryQueueConfig().DedupWindow
	}

	return &Producer{
		queue:  queue,
		dedup:  dedup,
		config: config,
		logger: logger.With("component", "task_producer"),
	}
}

// Submit publishes t and returns the ID of the task that will be processed.
// A submission identical to one accepted within the dedup window returns the
// earlier task's ID and results in no additional processing. Any backend
// failure is returned as a *PublishError.
func (p *Producer) Submit(ctx context.Context, t domain.Task) (uuid.UUID, error) {
	key := DedupKey(t)

	ownerID, err := p.dedup.Claim(ctx, key, t.ID, p.config.DedupWindow)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to claim dedup key",
			"task_id", t.ID,
			"error", err)
		return uuid.Nil, &PublishError{Op: "claim dedup key", Err: err}
	}

	if ownerID != t.ID {
		p.logger.InfoContext(ctx, "duplicate submission coalesced",
			"task_id", ownerID,
			"discarded_task_id", t.ID)
		t.ID = ownerID
	}

	body, err := EncodeTask(t)
	if err != nil {
		return uuid.Nil, &PublishError{Op: "encode task", Err: err}
	}

	messageID, err := p.queue.Publish(ctx, OutboundMessage{
		Body:        body,
		OrderingKey: p.config.OrderingKey,
		DedupKey:    key,
		TaskID:      t.ID,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish task",
			"task_id", t.ID,
			"error", err)
		return uuid.Nil, &PublishError{Op: "publish", Err: err}
	}

	p.logger.InfoContext(ctx, "task queued",
		"task_id", t.ID,
		"message_id", messageID,
		"priority", t.Priority)

	return t.ID, nil
}
