package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/flvexporter/internal/repo"
)

// AlertStore keeps alert state for the lifetime of the process.
type AlertStore struct {
	mu  sync.Mutex
	m   map[string]repo.AlertRecord
	now func() time.Time
}

func NewAlertStore() *AlertStore {
	return &AlertStore{m: make(map[string]repo.AlertRecord), now: time.Now}
}

func (a *AlertStore) Get(_ context.Context, stream string) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.m[stream]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *AlertStore) Set(_ context.Context, stream string, healthy bool, alertAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, seen := a.m[stream]
	rec := repo.AlertRecord{
		StreamName:  stream,
		LastHealthy: healthy,
		ChangedAt:   prev.ChangedAt,
		LastAlertAt: prev.LastAlertAt,
	}
	if !seen || prev.LastHealthy != healthy {
		rec.ChangedAt = a.now()
	}
	if !alertAt.IsZero() {
		rec.LastAlertAt = &alertAt
	}
	a.m[stream] = rec
	return nil
}
