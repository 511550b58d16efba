package repo

import "github.com/hamed0406/flvexporter/internal/domain"

// StatusStore holds the last known state per stream name. Reads must never
// wait for writers.
type StatusStore interface {
	// Register creates the default (down, 0ms) state. It returns false when
	// the name was already registered and leaves the existing state alone.
	Register(name string) bool
	// Write records the final verdict of a completed check.
	Write(name string, healthy bool, latencyMS float64)
	Read(name string) (domain.StreamState, bool)
	Snapshot() map[string]domain.StreamState
}
