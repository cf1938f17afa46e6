// Package server exposes the scanner over HTTP for editor integrations
// and CI dashboards that want scan results without shelling out to the
// CLI.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depvet/pkg/buildinfo"
	"github.com/matzehuels/depvet/pkg/errors"
	"github.com/matzehuels/depvet/pkg/render"
	"github.com/matzehuels/depvet/pkg/scan"
)

// reportTTL bounds how long finished reports stay available for
// follow-up artifact requests.
const reportTTL = 15 * time.Minute

// Server wraps a Scanner with an HTTP API.
type Server struct {
	scanner *scan.Scanner
	logger  *log.Logger

	mu      sync.Mutex
	reports map[string]storedReport
}

type storedReport struct {
	report   *scan.Report
	storedAt time.Time
}

// New creates a Server around the given scanner.
func New(scanner *scan.Scanner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		scanner: scanner,
		logger:  logger,
		reports: make(map[string]storedReport),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/scan", s.handleScan)
	r.Get("/api/reports/{id}", s.handleReport)
	r.Get("/api/reports/{id}/svg", s.handleReportSVG)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

type scanRequest struct {
	Manifest   scan.Manifest `json:"manifest"`
	IncludeDev bool          `json:"include_dev"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Manifest.Name == "" {
		writeError(w, http.StatusBadRequest, "manifest.name is required")
		return
	}
	if err := errors.ValidatePackageName(req.Manifest.Name); err != nil {
		writeError(w, http.StatusBadRequest, errors.UserMessage(err))
		return
	}

	report, err := s.scanner.Scan(r.Context(), &req.Manifest, req.IncludeDev)
	if err != nil {
		s.logger.Error("scan failed", "root", req.Manifest.Name, "error", err)
		writeError(w, http.StatusInternalServerError, errors.UserMessage(err))
		return
	}

	s.store(report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReportSVG(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found or expired")
		return
	}

	detailed := r.URL.Query().Get("detailed") == "true"
	svg, err := render.RenderSVG(render.ToDOT(report, render.Options{Detailed: detailed}))
	if err != nil {
		s.logger.Error("svg render failed", "report", report.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

func (s *Server) store(report *scan.Report) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stored := range s.reports {
		if now.Sub(stored.storedAt) > reportTTL {
			delete(s.reports, id)
		}
	}
	s.reports[report.ID] = storedReport{report: report, storedAt: now}
}

func (s *Server) lookup(id string) (*scan.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reports[id]
	if !ok || time.Since(stored.storedAt) > reportTTL {
		return nil, false
	}
	return stored.report, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
