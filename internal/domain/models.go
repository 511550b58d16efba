package domain

import "time"

// StreamTarget is one monitored endpoint. It is derived once per
// configuration load and never mutated afterwards.
type StreamTarget struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Project     string `json:"project"`
	Description string `json:"description"`
}

// NewStreamTarget derives the stable name and description for url.
func NewStreamTarget(project, url string) StreamTarget {
	name, desc := DeriveIdentity(project, url)
	return StreamTarget{
		Name:        name,
		URL:         url,
		Project:     project,
		Description: desc,
	}
}

const (
	StatusDown = 0.0
	StatusUp   = 1.0
)

// StreamState is the last known result for a stream.
type StreamState struct {
	Status         float64   `json:"status"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	CheckedAt      time.Time `json:"checked_at,omitempty"`
}

func (s StreamState) Healthy() bool { return s.Status == StatusUp }
