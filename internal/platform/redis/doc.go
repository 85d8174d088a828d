// Package redis provides Redis-backed implementations of the queue engine's
// idempotency store and dedup index, plus client initialization with
// connection verification.
//
// Records live under a configurable key prefix. In-progress claims expire
// with the Redis key TTL, so a crashed worker's claim lapses on its own and
// the next delivery can take over. Every state transition runs as a Lua
// script so it is atomic with respect to concurrent workers.
package redis
