// Package domain defines the Task entity and the pure validation that turns a
// raw submission into one. Nothing here performs I/O.
package domain
