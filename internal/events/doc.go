// Package events carries operational events raised by the queue engine to
// interested handlers without coupling the engine to them.
//
// The primary components are:
// - Event: a typed envelope with a JSON payload
// - DeadLetterPayload: the payload of a task that exhausted its retries
// - EventHandler and EventEmitter: the dispatch interfaces
// - LoggingHandler: a handler that turns events into structured log alerts
package events
