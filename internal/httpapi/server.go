package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/domain"
	apimw "github.com/hamed0406/flvexporter/internal/httpapi/middleware"
	"github.com/hamed0406/flvexporter/internal/repo"
)

const (
	serviceName        = "FLV Exporter"
	serviceDescription = "Prometheus exporter for FLV stream monitoring"
)

// Version is overridden at build time with -ldflags.
var Version = "1.0.0"

type Server struct {
	Logger   *zap.Logger
	Projects map[string][]string
	Targets  []domain.StreamTarget
	Store    repo.StatusStore
	Gatherer prometheus.Gatherer
}

func NewServer(l *zap.Logger, projects map[string][]string, targets []domain.StreamTarget, store repo.StatusStore, g prometheus.Gatherer) *Server {
	return &Server{Logger: l, Projects: projects, Targets: targets, Store: store, Gatherer: g}
}

// Router wires the scrape endpoint and the JSON info endpoints. apiRPM and
// apiBurst rate-limit /api and /config per client IP; apiRPM <= 0 disables it.
func (s *Server) Router(apiRPM, apiBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	metrics := promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.Logger),
	})
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Method(http.MethodGet, "/actuator/prometheus", metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(apiRPM, apiBurst))
		r.Get("/api", s.handleInfo)
		r.Get("/api/streams", s.handleStreams)
		r.Get("/config", s.handleConfig)
	})

	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"service":     serviceName,
		"version":     Version,
		"description": serviceDescription,
		"endpoints": map[string]string{
			"metrics": "/metrics",
			"health":  "/healthz",
			"config":  "/config",
			"streams": "/api/streams",
		},
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"configured_projects": len(s.Projects),
		"configured_streams":  len(s.Targets),
		"projects":            s.Projects,
		"streams":             s.Targets,
	})
}

type streamStatus struct {
	domain.StreamTarget
	domain.StreamState
	Healthy bool `json:"healthy"`
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	out := make([]streamStatus, 0, len(s.Targets))
	for _, t := range s.Targets {
		if project != "" && t.Project != project {
			continue
		}
		st, _ := s.Store.Read(t.Name)
		out = append(out, streamStatus{StreamTarget: t, StreamState: st, Healthy: st.Healthy()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
