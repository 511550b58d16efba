package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/domain"
	"github.com/hamed0406/flvexporter/internal/repo"
)

type ProjectSummary struct {
	Project     string  `json:"project"`
	Total       int     `json:"total"`
	Healthy     int     `json:"healthy"`
	Unhealthy   int     `json:"unhealthy"`
	SuccessRate float64 `json:"success_rate"` // percent, one decimal
}

type StreamReport struct {
	Name           string    `json:"name"`
	Project        string    `json:"project"`
	URL            string    `json:"url"`
	Healthy        bool      `json:"healthy"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	CheckedAt      time.Time `json:"checked_at,omitempty"`
}

// RoundSummary is computed from the status store at the end of a round.
type RoundSummary struct {
	ID         string           `json:"id"`
	Total      int              `json:"total"`
	Healthy    int              `json:"healthy"`
	Unhealthy  int              `json:"unhealthy"`
	Projects   []ProjectSummary `json:"projects"`
	Streams    []StreamReport   `json:"streams"`
	Dispatched int              `json:"dispatched"`
	Elapsed    time.Duration    `json:"elapsed"`
	TimedOut   bool             `json:"timed_out"`
}

// UnhealthyStreams returns the down streams in target order.
func (r RoundSummary) UnhealthyStreams() []StreamReport {
	var out []StreamReport
	for _, s := range r.Streams {
		if !s.Healthy {
			out = append(out, s)
		}
	}
	return out
}

// Summarize reads the current state of every target from store. Results
// that land after the call are picked up by the next summary.
func Summarize(targets []domain.StreamTarget, store repo.StatusStore) RoundSummary {
	sum := RoundSummary{
		Total:   len(targets),
		Streams: make([]StreamReport, 0, len(targets)),
	}
	byProject := make(map[string]*ProjectSummary)
	for _, t := range targets {
		st, _ := store.Read(t.Name)
		healthy := st.Healthy()

		ps := byProject[t.Project]
		if ps == nil {
			ps = &ProjectSummary{Project: t.Project}
			byProject[t.Project] = ps
		}
		ps.Total++
		if healthy {
			ps.Healthy++
			sum.Healthy++
		} else {
			ps.Unhealthy++
			sum.Unhealthy++
		}

		sum.Streams = append(sum.Streams, StreamReport{
			Name:           t.Name,
			Project:        t.Project,
			URL:            t.URL,
			Healthy:        healthy,
			ResponseTimeMS: st.ResponseTimeMS,
			CheckedAt:      st.CheckedAt,
		})
	}

	sum.Projects = make([]ProjectSummary, 0, len(byProject))
	for _, ps := range byProject {
		ps.SuccessRate = SuccessRate(ps.Healthy, ps.Total)
		sum.Projects = append(sum.Projects, *ps)
	}
	sort.Slice(sum.Projects, func(i, j int) bool {
		return sum.Projects[i].Project < sum.Projects[j].Project
	})
	return sum
}

// SuccessRate is healthy/total as a percentage rounded to one decimal.
func SuccessRate(healthy, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(healthy)*1000/float64(total)) / 10
}

// Report writes the summary as structured log lines.
func Report(log *zap.Logger, sum RoundSummary) {
	log.Info("round_summary",
		zap.Duration("elapsed", sum.Elapsed),
		zap.Bool("timed_out", sum.TimedOut),
		zap.Int("dispatched", sum.Dispatched),
		zap.Int("total", sum.Total),
		zap.Int("healthy", sum.Healthy),
		zap.Int("unhealthy", sum.Unhealthy),
	)
	for _, p := range sum.Projects {
		log.Info("project_summary",
			zap.String("project", p.Project),
			zap.Int("total", p.Total),
			zap.Int("healthy", p.Healthy),
			zap.Int("unhealthy", p.Unhealthy),
			zap.String("success_rate", fmt.Sprintf("%.1f%%", p.SuccessRate)),
		)
	}
	for _, s := range sum.UnhealthyStreams() {
		log.Warn("unhealthy_stream",
			zap.String("stream", s.Name),
			zap.String("project", s.Project),
			zap.String("url", s.URL),
		)
	}
}
