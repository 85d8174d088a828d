// Package store defines the database access abstraction and the error
// values shared by every persistence implementation, so callers can check
// failures without knowing which database produced them.
package store
