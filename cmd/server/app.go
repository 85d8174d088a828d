package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/chelorossi/backend-challenge/internal/api"
	"github.com/chelorossi/backend-challenge/internal/config"
	"github.com/chelorossi/backend-challenge/internal/events"
	"github.com/chelorossi/backend-challenge/internal/platform/postgres"
	"github.com/chelorossi/backend-challenge/internal/platform/redis"
	"github.com/chelorossi/backend-challenge/internal/platform/sqs"
	"github.com/chelorossi/backend-challenge/internal/redact"
	"github.com/chelorossi/backend-challenge/internal/task"
)

// janitorInterval is how often expired idempotency rows are purged.
const janitorInterval = time.Hour

// application holds the shared dependencies and ensures proper cleanup on
// shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Connections, nil when no component needs them
	db    *sql.DB
	redis *goredis.Client

	queue       task.OrderedQueue
	deadLetters task.DeadLetterReader
	dedup       task.DedupIndex
	idempotency task.IdempotencyStore
	emitter     *events.InMemoryEventEmitter

	producer *task.Producer
	runner   *task.TaskRunner

	// background holds extra errgroup members such as the janitor
	background []func(ctx context.Context) func() error
	closers    []func()
}

// newApplication connects the configured backends and builds the producer
// and consumer.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	if err := app.setupQueue(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupStores(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(events.TypeDeadLetter, events.NewLoggingHandler(logger))

	app.producer = task.NewProducer(app.queue, app.dedup, task.ProducerConfig{
		OrderingKey: cfg.Queue.OrderingKey,
		DedupWindow: cfg.Queue.DedupWindow,
	}, logger)

	if cfg.Consumer.Enabled {
		consumer := task.NewConsumer(
			app.queue,
			app.idempotency,
			task.NewProcessor(logger),
			app.emitter,
			task.ConsumerConfig{
				VisibilityTimeout: cfg.Queue.VisibilityTimeout,
				MaxReceiveCount:   cfg.Queue.MaxReceiveCount,
				Backoff: task.BackoffConfig{
					BaseDelay: cfg.Consumer.RetryBaseDelay,
					MaxDelay:  cfg.Consumer.RetryMaxDelay,
				},
			},
			logger,
		)

		runnerCfg := task.DefaultTaskRunnerConfig()
		runnerCfg.WorkerCount = cfg.Consumer.Workers
		runnerCfg.StatsInterval = cfg.Consumer.StatsInterval
		app.runner = task.NewTaskRunner(app.queue, consumer, runnerCfg, logger)
		runnerLog := logger.With("component", "task_runner")
		app.runner.SetErrorHandler(func(d *task.Delivery, err error) {
			runnerLog.Error("delivery processing failed",
				"message_id", d.MessageID,
				"receive_count", d.ReceiveCount,
				"error", redact.Error(err))
		})
	}

	return app, nil
}

func (app *application) setupQueue(ctx context.Context) error {
	cfg := app.config

	switch cfg.Queue.Backend {
	case config.QueueBackendSQS:
		client, err := sqs.NewClient(ctx, sqs.ClientConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.Endpoint,
		})
		if err != nil {
			return err
		}

		queue, err := sqs.NewQueue(client, sqs.QueueConfig{
			QueueURL:          cfg.AWS.QueueURL,
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			WaitTime:          cfg.Queue.WaitTime,
		}, app.logger)
		if err != nil {
			return err
		}
		app.queue = queue

		if cfg.AWS.DLQURL != "" {
			reader, err := sqs.NewDeadLetterReader(client, cfg.AWS.DLQURL)
			if err != nil {
				return err
			}
			app.deadLetters = reader
		}

	default:
		deadLetters := task.NewMemoryDeadLetterChannel()
		queue := task.NewMemoryQueue(task.MemoryQueueConfig{
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			MaxReceiveCount:   cfg.Queue.MaxReceiveCount,
			DedupWindow:       cfg.Queue.DedupWindow,
			WaitTime:          cfg.Queue.WaitTime,
		}, task.WithDeadLetterChannel(deadLetters), task.WithQueueLogger(app.logger))

		app.queue = queue
		app.deadLetters = deadLetters
		app.closers = append(app.closers, queue.Close)
	}

	app.logger.Info("queue backend ready", "backend", cfg.Queue.Backend)
	return nil
}

func (app *application) setupStores(ctx context.Context) error {
	cfg := app.config

	needRedis := cfg.Idempotency.Backend == config.StoreBackendRedis || cfg.Dedup.Backend == config.StoreBackendRedis
	if needRedis {
		client, err := redis.Connect(ctx, redis.DefaultConfig(cfg.Redis.URL))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.closers = append(app.closers, func() {
			if err := client.Close(); err != nil {
				app.logger.Warn("failed to close redis client", "error", err)
			}
		})
	}

	switch cfg.Dedup.Backend {
	case config.StoreBackendRedis:
		app.dedup = redis.NewDedupIndex(app.redis)
	default:
		app.dedup = task.NewMemoryDedupIndex()
	}

	switch cfg.Idempotency.Backend {
	case config.StoreBackendRedis:
		app.idempotency = redis.NewIdempotencyStore(app.redis, cfg.Idempotency.CompletedTTL)

	case config.StoreBackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		app.db = db
		app.closers = append(app.closers, func() {
			if err := db.Close(); err != nil {
				app.logger.Warn("failed to close database", "error", err)
			}
		})

		if err := postgres.MigrateUp(ctx, db, app.logger); err != nil {
			return err
		}

		store := postgres.NewIdempotencyStore(db, cfg.Idempotency.CompletedTTL)
		app.idempotency = store
		app.background = append(app.background, func(ctx context.Context) func() error {
			return store.RunJanitor(ctx, janitorInterval, app.logger.With("component", "idempotency_janitor"))
		})

	default:
		app.idempotency = task.NewMemoryIdempotencyStore()
	}

	app.logger.Info("stores ready",
		"idempotency_backend", cfg.Idempotency.Backend,
		"dedup_backend", cfg.Dedup.Backend)
	return nil
}

// readinessChecks returns a check for every network dependency in use.
func (app *application) readinessChecks() map[string]api.CheckFunc {
	checks := make(map[string]api.CheckFunc)
	if app.redis != nil {
		checks["redis"] = redis.Healthcheck(app.redis)
	}
	if app.db != nil {
		checks["postgres"] = app.db.PingContext
	}
	return checks
}

// run serves HTTP and, when enabled, consumes the queue until ctx is done.
func (app *application) run(ctx context.Context) error {
	handler := api.NewTaskHandler(app.producer, app.config.Server.MaxBodyBytes, app.logger)
	ready := api.NewReadinessHandler(app.readinessChecks(), 0, app.logger)
	server := app.newHTTPServer(setupRouter(handler, ready, app.logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.serveHTTP(gctx, server))

	if app.runner != nil {
		g.Go(app.runner.Run(gctx))
	}
	if app.deadLetters != nil && app.config.Consumer.StatsInterval > 0 {
		g.Go(app.reportDeadLetters(gctx, app.config.Consumer.StatsInterval))
	}
	for _, bg := range app.background {
		g.Go(bg(gctx))
	}

	return g.Wait()
}

// reportDeadLetters periodically logs a sample of the dead-letter channel.
func (app *application) reportDeadLetters(ctx context.Context, interval time.Duration) func() error {
	log := app.logger.With("component", "dead_letter_report")

	return func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				letters, err := app.deadLetters.ListDeadLetters(ctx, 10)
				if err != nil {
					log.Warn("failed to read dead-letter channel", "error", redact.Error(err))
				}
				if len(letters) == 0 {
					continue
				}

				ids := make([]string, 0, len(letters))
				for _, dl := range letters {
					ids = append(ids, dl.MessageID)
				}
				log.Warn("dead-letter channel holds messages",
					"sampled", len(letters),
					"message_ids", ids)
			}
		}
	}
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}
