// Package postgres provides the PostgreSQL-backed idempotency store for the
// queue engine, the embedded schema migrations it depends on, and the
// mapping of driver errors onto the internal/store error values.
package postgres
