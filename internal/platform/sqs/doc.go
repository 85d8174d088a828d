// Package sqs implements the ordered task queue on an Amazon SQS FIFO queue.
//
// Ordering groups map to MessageGroupId and dedup keys to
// MessageDeduplicationId. Dead-lettering is handled by the queue's redrive
// policy; DeadLetterReader peeks at the dead-letter queue without consuming it.
package sqs
