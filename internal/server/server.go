// Package server exposes the trial pipeline over HTTP: one run endpoint,
// liveness and readiness probes, and a Prometheus scrape endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/internal/report"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/config"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/pipeline"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/storage"
)

// maxRequestBody bounds the trial request payload.
const maxRequestBody = 1 << 20

// Runner executes one pipeline pass. Satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, prompt, domain, mode string) (*pipeline.Report, error)
}

// Server is the HTTP front end.
type Server struct {
	cfg     *config.Config
	runner  Runner
	logger  *slog.Logger
	metrics *Metrics
	store   storage.ReportStore

	probe      *http.Client
	httpServer *http.Server
}

// New builds a Server around a pipeline runner.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("server: runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		runner:  runner,
		logger:  logger,
		metrics: NewMetrics(),
		store:   storage.NewMemoryReportStore(storage.DefaultCapacity),
		probe:   &http.Client{Timeout: cfg.Services.HealthTimeout},
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler assembles the routes with metrics and tracing middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/trial", s.handleTrial)
	mux.HandleFunc("/v1/trial/", s.handleGetTrial)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.Handle("/metrics", s.metrics.Handler())

	return otelhttp.NewHandler(s.metrics.Middleware(mux), "trialcenter.http")
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// trialRequest is the run endpoint payload.
type trialRequest struct {
	Prompt string `json:"prompt"`
	Domain string `json:"domain,omitempty"`
	Mode   string `json:"mode"`
}

// trialResponse wraps the rendered report with deployment context.
type trialResponse struct {
	*report.View
	SharedTrial bool `json:"shared_trial,omitempty"`
}

func (s *Server) handleTrial(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		s.handleListTrials(w, r)
		return
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("%w: method %s not allowed", domain.ErrCallerInput, r.Method))
		return
	}

	var req trialRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrCallerInput, err))
		return
	}
	io.Copy(io.Discard, body)

	rep, err := s.runner.Run(r.Context(), req.Prompt, req.Domain, req.Mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrCallerInput) {
			status = http.StatusBadRequest
		}
		s.writeError(w, r, status, err)
		return
	}

	outcome := "success"
	if !rep.Succeeded() {
		outcome = "step_failure"
	}
	s.metrics.RecordRun(string(rep.Mode), outcome)

	view := report.NewView(rep)
	if err := s.store.Put(r.Context(), view); err != nil {
		s.logger.Warn("failed to store report", "report_id", rep.ID, "error", err)
	}

	s.writeJSON(w, http.StatusOK, trialResponse{
		View:        view,
		SharedTrial: s.cfg.SharedTrialMode,
	})
}

// handleListTrials returns the retained run history, oldest first.
func (s *Server) handleListTrials(w http.ResponseWriter, r *http.Request) {
	views, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reports": views})
}

// handleGetTrial returns a previously run report by ID.
func (s *Server) handleGetTrial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("%w: method %s not allowed", domain.ErrCallerInput, r.Method))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/trial/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: missing report ID", domain.ErrCallerInput))
		return
	}

	view, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: unknown report %q", domain.ErrCallerInput, id))
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trialResponse{View: view, SharedTrial: s.cfg.SharedTrialMode})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz probes both Developer Edition services. Any HTTP response
// below 500 counts as reachable; readiness is about the services being
// up, not about credentials.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"guardrail":      s.cfg.Services.GuardrailURL,
		"classification": s.cfg.Services.DiscoveryEndpoint,
	}

	status := http.StatusOK
	results := make(map[string]string, len(checks))
	for name, target := range checks {
		if err := s.probeService(r.Context(), target); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	s.writeJSON(w, status, results)
}

func (s *Server) probeService(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	traceID := uuid.NewString()
	s.logger.Warn("request failed",
		"trace_id", traceID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	s.writeJSON(w, status, domain.ErrorResponse{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
		TraceID: traceID,
	})
}
