// Package api exposes the task submission endpoint over HTTP. It validates
// and decodes requests, hands tasks to the producer and maps internal errors
// onto client-safe responses.
package api
