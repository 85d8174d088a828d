// Package task implements the ordered queue processing engine: submitting
// validated tasks with ordering and deduplication guarantees, and consuming
// them one at a time per ordering group with idempotent execution, bounded
// retries and dead-letter routing.
//
// The queue backend and the idempotency store are injected capabilities.
// MemoryQueue and MemoryIdempotencyStore implement them in process; durable
// implementations live under internal/platform.
package task
