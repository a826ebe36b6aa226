// Package server exposes the Cadence HTTP surface: liveness, the Prometheus
// scrape endpoint, read-only progression views, and the websocket audio
// ingest that drives live sessions.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spinhq/cadence/internal/app"
	"github.com/spinhq/cadence/internal/catalog"
	"github.com/spinhq/cadence/internal/export"
	"github.com/spinhq/cadence/internal/health"
	"github.com/spinhq/cadence/internal/observe"
	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/pkg/scoring"
)

// Config holds the dependencies for a [Server].
type Config struct {
	Sessions *app.SessionManager
	Engine   *progression.Engine
	Scenes   *scene.Registry

	// SampleRate is the default PCM sample rate when a stream hello does not
	// specify one.
	SampleRate int

	// Bins is the number of magnitude bins folded from each PCM chunk.
	Bins int

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics

	// Health serves the probe endpoints; defaults to a handler with no
	// readiness checks.
	Health *health.Handler
}

// Server serves the Cadence HTTP API.
type Server struct {
	sessions   *app.SessionManager
	engine     *progression.Engine
	scenes     *scene.Registry
	sampleRate int
	bins       int
	metrics    *observe.Metrics
	health     *health.Handler
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	h := cfg.Health
	if h == nil {
		h = health.New()
	}
	return &Server{
		sessions:   cfg.Sessions,
		engine:     cfg.Engine,
		scenes:     cfg.Scenes,
		sampleRate: cfg.SampleRate,
		bins:       cfg.Bins,
		metrics:    metrics,
		health:     h,
	}
}

// Handler returns the root handler serving:
//
//	GET /healthz      liveness
//	GET /readyz       readiness (storage check when configured)
//	GET /metrics      Prometheus scrape
//	GET /v1/progress    progression snapshot
//	GET /v1/scenes      scenario catalog with play stats
//	GET /v1/techniques  technique library, with a per-mode suggestion
//	GET /v1/summary     plain-text progress summary
//	GET /v1/stream      websocket audio ingest
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/scenes", s.handleScenes)
	mux.HandleFunc("GET /v1/techniques", s.handleTechniques)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return observe.Middleware(s.metrics)(mux)
}

// progressResponse is the JSON body returned from GET /v1/progress.
type progressResponse struct {
	Profile        progression.Profile         `json:"profile"`
	Progress       progression.Progress        `json:"progress"`
	LevelTitle     string                      `json:"level_title"`
	AverageScores  scoring.Scores              `json:"average_scores"`
	CrystalCounts  map[scoring.CrystalType]int `json:"crystal_counts"`
	TechniquesUsed []string                    `json:"techniques_used"`
	StreakAtRisk   bool                        `json:"streak_at_risk"`
	Message        string                      `json:"message"`
}

// handleProgress handles GET /v1/progress.
func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	progress := s.engine.Progress()
	writeJSON(w, http.StatusOK, progressResponse{
		Profile:        s.engine.Profile(),
		Progress:       progress,
		LevelTitle:     progression.GetLevelInfo(progress.XP).Title,
		AverageScores:  s.engine.AverageScores(),
		CrystalCounts:  s.engine.CrystalCounts(),
		TechniquesUsed: s.engine.TechniquesUsed(),
		StreakAtRisk:   s.engine.StreakAtRisk(),
		Message:        scoring.MotivationalMessage(progress.StreakDays, progress.TotalSessions),
	})
}

// handleTechniques handles GET /v1/techniques. A valid mode query parameter
// adds a random suggestion drawn from that mode's technique families.
func (s *Server) handleTechniques(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"techniques": catalog.Techniques}
	if mode := catalog.Mode(r.URL.Query().Get("mode")); mode.IsValid() {
		body["suggestion"] = catalog.TechniqueForMode(mode, nil)
	}
	writeJSON(w, http.StatusOK, body)
}

// handleScenes handles GET /v1/scenes.
func (s *Server) handleScenes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenes": s.scenes.All()})
}

// handleSummary handles GET /v1/summary.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(export.Summary(s.engine))); err != nil {
		slog.Warn("write summary response", "error", err)
	}
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
