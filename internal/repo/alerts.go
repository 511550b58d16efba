package repo

import (
	"context"
	"time"
)

// AlertRecord is the notification state of one stream.
type AlertRecord struct {
	StreamName  string
	LastHealthy bool
	// ChangedAt is when LastHealthy last flipped.
	ChangedAt time.Time
	// LastAlertAt is nil until a message was sent; cooldowns count from it.
	LastAlertAt *time.Time
}

// AlertStore keeps notification state between rounds.
type AlertStore interface {
	// Get returns nil, nil for a stream never recorded.
	Get(ctx context.Context, stream string) (*AlertRecord, error)
	// Set records healthy for stream. A zero alertAt keeps the previous
	// LastAlertAt.
	Set(ctx context.Context, stream string, healthy bool, alertAt time.Time) error
}
