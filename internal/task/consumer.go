package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/chelorossi/backend-challenge/internal/events"
	"github.com/google/uuid"
)

// Outcome is the result of processing one delivery.
type Outcome string

const (
	// OutcomeCompleted: the handler succeeded and the message was acknowledged
	OutcomeCompleted Outcome = "completed"

	// OutcomeDuplicate: the task had already completed; the redelivery was
	// acknowledged without running the handler
	OutcomeDuplicate Outcome = "duplicate"

	// OutcomeBusy: another worker holds a live claim; the delivery was left
	// to expire
	OutcomeBusy Outcome = "busy"

	// OutcomeRetry: the attempt failed and the message will be redelivered
	OutcomeRetry Outcome = "retry"

	// OutcomeDeadLettered: the final attempt failed; the queue moves the
	// message to the dead-letter channel instead of redelivering it
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	// VisibilityTimeout must match the queue's; together with
	// Delivery.LeaseStartedAt it bounds handler execution and the claim
	VisibilityTimeout time.Duration

	// MaxReceiveCount must match the queue's redrive setting
	MaxReceiveCount int

	// Backoff reschedules failed deliveries; disabled when zero
	Backoff BackoffConfig
}

// Consumer runs the per-delivery state machine: decode, idempotency check,
// claim, execute, then complete and acknowledge, or release and retry.
type Consumer struct {
	queue   QueueReader
	store   IdempotencyStore
	handler Handler
	emitter events.EventEmitter
	config  ConsumerConfig
	logger  *slog.Logger
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewConsumer creates a Consumer. emitter may be nil.
func NewConsumer(
	queue QueueReader,
	store IdempotencyStore,
	handler Handler,
	emitter events.EventEmitter,
	config ConsumerConfig,
	logger *slog.Logger,
) *Consumer {
	defaults := DefaultMemoryQueueConfig()
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = defaults.VisibilityTimeout
	}
	if config.MaxReceiveCount <= 0 {
		config.MaxReceiveCount = defaults.MaxReceiveCount
	}

	return &Consumer{
		queue:   queue,
		store:   store,
		handler: handler,
		emitter: emitter,
		config:  config,
		logger:  logger.With("component", "task_consumer"),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Process handles one delivery. The returned error reports infrastructure
// failures (store or queue calls); handler failures are expressed through
// the outcome. Store and queue calls are not interrupted by cancellation of
// ctx so an in-flight delivery is always settled.
func (c *Consumer) Process(ctx context.Context, d *Delivery) (Outcome, error) {
	opCtx := context.WithoutCancel(ctx)
	log := c.logger.With(
		"message_id", d.MessageID,
		"receive_count", d.ReceiveCount)

	env, err := DecodeEnvelope(d)
	if err != nil {
		log.ErrorContext(ctx, "discarding undecodable message body", "error", err)
		return c.fail(opCtx, d, uuid.Nil, err, log), nil
	}
	t := env.Task
	log = log.With("task_id", t.ID, "ordering_key", env.OrderingKey)

	rec, err := c.store.Get(opCtx, t.ID)
	switch {
	case err == nil && rec.State == IdempotencyCompleted:
		return c.ackDuplicate(opCtx, d, log)
	case err != nil && !errors.Is(err, ErrRecordNotFound):
		log.ErrorContext(ctx, "idempotency lookup failed", "error", err)
		return c.fail(opCtx, d, t.ID, err, log), fmt.Errorf("idempotency lookup: %w", err)
	}

	lease := c.remainingLease(d)
	if lease <= 0 {
		log.WarnContext(ctx, "delivery lease lapsed before the task was claimed")
		return OutcomeBusy, nil
	}

	acquired, err := c.store.Acquire(opCtx, t.ID, d.ReceiptHandle, lease)
	if err != nil {
		log.ErrorContext(ctx, "failed to claim task", "error", err)
		return c.fail(opCtx, d, t.ID, err, log), fmt.Errorf("claim task: %w", err)
	}
	if !acquired {
		// Lost a race with a completion, or another worker holds the claim
		if rec, err := c.store.Get(opCtx, t.ID); err == nil && rec.State == IdempotencyCompleted {
			return c.ackDuplicate(opCtx, d, log)
		}
		log.WarnContext(ctx, "task is being processed by another worker")
		return OutcomeBusy, nil
	}

	if err := c.execute(opCtx, t, lease); err != nil {
		if releaseErr := c.store.Release(opCtx, t.ID, d.ReceiptHandle); releaseErr != nil {
			log.WarnContext(ctx, "failed to release task claim", "error", releaseErr)
		}
		return c.fail(opCtx, d, t.ID, err, log), nil
	}

	if err := c.store.MarkCompleted(opCtx, t.ID); err != nil {
		// Leave the message to be redelivered; the claim expires with the lease
		log.ErrorContext(ctx, "failed to record task completion", "error", err)
		return OutcomeRetry, fmt.Errorf("mark task completed: %w", err)
	}

	if err := c.queue.Ack(opCtx, d); err != nil {
		log.ErrorContext(ctx, "failed to acknowledge completed task", "error", err)
		return OutcomeCompleted, fmt.Errorf("ack delivery: %w", err)
	}

	log.InfoContext(ctx, "task completed")
	return OutcomeCompleted, nil
}

func (c *Consumer) ackDuplicate(ctx context.Context, d *Delivery, log *slog.Logger) (Outcome, error) {
	if err := c.queue.Ack(ctx, d); err != nil {
		log.ErrorContext(ctx, "failed to acknowledge duplicate delivery", "error", err)
		return OutcomeDuplicate, fmt.Errorf("ack duplicate delivery: %w", err)
	}

	log.InfoContext(ctx, "task already processed, duplicate delivery acknowledged")
	return OutcomeDuplicate, nil
}

// remainingLease is how much of the delivery's visibility timeout is left.
// The idempotency claim and the handler deadline both end when it does.
func (c *Consumer) remainingLease(d *Delivery) time.Duration {
	if d.LeaseStartedAt.IsZero() {
		return c.config.VisibilityTimeout
	}
	return c.config.VisibilityTimeout - c.now().Sub(d.LeaseStartedAt)
}

// execute runs the handler bounded by lease, converting a panic into an
// error.
func (c *Consumer) execute(ctx context.Context, t domain.Task, lease time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, lease)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("task handler panicked",
				"task_id", t.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()

	return c.handler.Handle(ctx, t)
}

// fail settles a failed attempt. The message is never acknowledged: it is
// either rescheduled with backoff or left for its lease to lapse, and once
// the final attempt fails the queue routes it to the dead-letter channel.
func (c *Consumer) fail(ctx context.Context, d *Delivery, taskID uuid.UUID, cause error, log *slog.Logger) Outcome {
	final := d.ReceiveCount >= c.config.MaxReceiveCount

	if errors.Is(cause, ErrPermanent) || errors.Is(cause, ErrMalformedMessage) {
		log.ErrorContext(ctx, "task attempt failed", "error", cause, "final_attempt", final)
	} else {
		log.WarnContext(ctx, "task attempt failed", "error", cause, "final_attempt", final)
	}

	if c.config.Backoff.Enabled() {
		var delay time.Duration
		if !final {
			c.rngMu.Lock()
			delay = RetryDelay(d.ReceiveCount, c.config.Backoff, c.rng)
			c.rngMu.Unlock()
		}
		if err := c.queue.Nack(ctx, d, delay); err != nil {
			log.WarnContext(ctx, "failed to reschedule delivery, waiting for lease expiry", "error", err)
		}
	}

	if !final {
		return OutcomeRetry
	}

	c.emitDeadLetter(ctx, d, taskID, cause, log)
	return OutcomeDeadLettered
}

func (c *Consumer) emitDeadLetter(ctx context.Context, d *Delivery, taskID uuid.UUID, cause error, log *slog.Logger) {
	if c.emitter == nil {
		return
	}

	event, err := events.NewDeadLetterEvent(events.DeadLetterPayload{
		TaskID:       taskID,
		MessageID:    d.MessageID,
		OrderingKey:  d.OrderingKey,
		ReceiveCount: d.ReceiveCount,
		Reason:       cause.Error(),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to build dead-letter event", "error", err)
		return
	}

	if err := c.emitter.EmitEvent(ctx, event); err != nil {
		log.ErrorContext(ctx, "failed to emit dead-letter event", "error", err)
	}
}
