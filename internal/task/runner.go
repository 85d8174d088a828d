package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers consume the queue.
	// Ordering holds for any count because the queue leases one message per
	// ordering group at a time.
	WorkerCount int

	// ErrorBackoff is how long a worker pauses after the queue fails
	ErrorBackoff time.Duration

	// StatsInterval defines how often runner counters are logged.
	// Zero disables the monitor.
	StatsInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:   1,
		ErrorBackoff:  time.Second,
		StatsInterval: time.Minute,
	}
}

// RunnerStats counts delivery outcomes since the runner started.
type RunnerStats struct {
	Completed    int64
	Duplicates   int64
	Busy         int64
	Retried      int64
	DeadLettered int64
	Errors       int64
}

// TaskRunner drives a Consumer from a pool of workers, each looping
// receive then process until stopped.
type TaskRunner struct {
	queue      QueueReader
	consumer   *Consumer
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(d *Delivery, err error)
	started    atomic.Bool

	completed    atomic.Int64
	duplicates   atomic.Int64
	busy         atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
	errors       atomic.Int64
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(queue QueueReader, consumer *Consumer, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With("component", "task_runner")

	return &TaskRunner{
		queue:      queue,
		consumer:   consumer,
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(d *Delivery, err error) {
			// Default error handler just logs the error
			logger.Error("delivery processing failed",
				"message_id", d.MessageID,
				"error", err)
		},
	}
}

// SetErrorHandler replaces the callback invoked when processing a delivery
// reports an infrastructure error. It must be called before Start.
func (r *TaskRunner) SetErrorHandler(handler func(d *Delivery, err error)) {
	r.errHandler = handler
}

// Start begins consuming in the background
func (r *TaskRunner) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("task runner already started")
	}

	r.logger.Info("starting task runner", "worker_count", r.config.WorkerCount)

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	if r.config.StatsInterval > 0 {
		r.wg.Add(1)
		go r.statsMonitor()
	}

	return nil
}

// Stop gracefully shuts down the task runner. Deliveries already being
// processed are settled before Stop returns.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Run returns a function suitable for an errgroup: it starts the runner and
// blocks until ctx is done, then stops it.
func (r *TaskRunner) Run(ctx context.Context) func() error {
	return func() error {
		if err := r.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		r.Stop()
		return nil
	}
}

// Stats returns a snapshot of the outcome counters.
func (r *TaskRunner) Stats() RunnerStats {
	return RunnerStats{
		Completed:    r.completed.Load(),
		Duplicates:   r.duplicates.Load(),
		Busy:         r.busy.Load(),
		Retried:      r.retried.Load(),
		DeadLettered: r.deadLettered.Load(),
		Errors:       r.errors.Load(),
	}
}

// worker receives and processes deliveries until the runner stops
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	logger := r.logger.With("worker_id", id)
	logger.Debug("starting worker")

	for {
		if r.ctx.Err() != nil {
			logger.Debug("stopping worker")
			return
		}

		d, err := r.queue.Receive(r.ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoMessage):
			continue
		case errors.Is(err, ErrQueueClosed):
			logger.Debug("queue closed, stopping worker")
			return
		case r.ctx.Err() != nil:
			logger.Debug("stopping worker")
			return
		default:
			r.errors.Add(1)
			logger.Error("failed to receive from queue", "error", err)
			r.pause()
			continue
		}

		r.processDelivery(d, logger)
	}
}

// processDelivery runs the consumer on one delivery and records the outcome
func (r *TaskRunner) processDelivery(d *Delivery, logger *slog.Logger) {
	outcome, err := r.consumer.Process(r.ctx, d)

	switch outcome {
	case OutcomeCompleted:
		r.completed.Add(1)
	case OutcomeDuplicate:
		r.duplicates.Add(1)
	case OutcomeBusy:
		r.busy.Add(1)
	case OutcomeRetry:
		r.retried.Add(1)
	case OutcomeDeadLettered:
		r.deadLettered.Add(1)
	}

	logger.Debug("delivery processed",
		"message_id", d.MessageID,
		"outcome", outcome)

	if err != nil {
		r.errors.Add(1)
		r.errHandler(d, err)
	}
}

func (r *TaskRunner) pause() {
	timer := time.NewTimer(r.config.ErrorBackoff)
	defer timer.Stop()

	select {
	case <-r.ctx.Done():
	case <-timer.C:
	}
}

// statsMonitor periodically logs the outcome counters
func (r *TaskRunner) statsMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			s := r.Stats()
			r.logger.Info("task runner stats",
				"completed", s.Completed,
				"duplicates", s.Duplicates,
				"busy", s.Busy,
				"retried", s.Retried,
				"dead_lettered", s.DeadLettered,
				"errors", s.Errors)
		}
	}
}
