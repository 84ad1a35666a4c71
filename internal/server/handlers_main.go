package server

import (
	"net/http"
	"time"
)

func (s *Server) registerMainRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/health", s.handleHealthReport)
	mux.HandleFunc("GET /api/v1/health/details", s.handleHealthDetails)
	mux.HandleFunc("GET /api/v1/health/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/config", s.handleConfig)
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// handleRoot greets API clients.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, RootResponse{
		Message: "Welcome to " + s.settings.AppName,
		Version: s.settings.AppVersion,
		Status:  "running",
	})
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
}

// handleHealth is a liveness probe that touches no dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.settings.AppVersion,
		Uptime:    s.health.Uptime(),
	})
}

// handleHealthReport returns the detailed health report. An unhealthy
// report is still served with 200 so the body can be inspected.
func (s *Server) handleHealthReport(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.health.Health(r.Context()))
}

// handleHealthDetails returns the health report inside the standard envelope.
func (s *Server) handleHealthDetails(w http.ResponseWriter, r *http.Request) {
	s.successResponse(w, "Health details retrieved", s.health.Health(r.Context()), nil)
}

// handleDiagnostics runs every diagnostic check.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	diag := s.health.Diagnose(r.Context())
	s.successResponse(w, "Diagnostics completed: "+diag.OverallStatus, diag, nil)
}

// handleStatus returns basic application status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.successResponse(w, "Application is running", s.health.AppStatus(), nil)
}

// handleConfig returns configuration without secrets.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.successResponse(w, "Configuration retrieved", s.health.Config(), nil)
}
