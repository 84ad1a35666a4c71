package server

import (
	"fmt"
	"net/http"

	"github.com/jonathan/portfolio-backend/internal/portfolio"
	"github.com/jonathan/portfolio-backend/internal/query"
	"github.com/jonathan/portfolio-backend/internal/server/middleware"
	"go.uber.org/zap"
)

// maxProjectLimit caps the limit query parameter.
const maxProjectLimit = 1000

func (s *Server) registerDataRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/data/profile", s.handleProfile)
	mux.HandleFunc("GET /api/v1/data/intro", s.handleIntro)
	mux.HandleFunc("GET /api/v1/data/layout", s.handleLayout)
	mux.HandleFunc("GET /api/v1/data/projects", s.handleProjects)
	mux.HandleFunc("GET /api/v1/data/projects/{id}", s.handleProject)
	mux.HandleFunc("GET /api/v1/data/experience", s.handleExperience)
	mux.HandleFunc("GET /api/v1/data/certificates", s.handleCertificates)
	mux.HandleFunc("GET /api/v1/data/stats", s.handleDataStats)

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator(),
		middleware.WithUnauthorizedHandler(func(w http.ResponseWriter, r *http.Request) {
			s.errorResponse(w, r, &ErrUnauthorized{})
		}))
	mux.Handle("POST /api/v1/data/cache/clear", auth(http.HandlerFunc(s.handleCacheClear)))
}

// documentHandler serves a whole document through the standard envelope.
func (s *Server) documentHandler(w http.ResponseWriter, r *http.Request, message string, load func() (any, error)) {
	data, err := load()
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.successResponse(w, message, data, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.documentHandler(w, r, "Profile retrieved successfully", func() (any, error) {
		return s.portfolio.Profile(r.Context())
	})
}

func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	s.documentHandler(w, r, "Introduction retrieved successfully", func() (any, error) {
		return s.portfolio.Intro(r.Context())
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.documentHandler(w, r, "Layout retrieved successfully", func() (any, error) {
		return s.portfolio.Layout(r.Context())
	})
}

func (s *Server) handleExperience(w http.ResponseWriter, r *http.Request) {
	s.documentHandler(w, r, "Experience data retrieved successfully", func() (any, error) {
		return s.portfolio.Experience(r.Context())
	})
}

func (s *Server) handleCertificates(w http.ResponseWriter, r *http.Request) {
	s.documentHandler(w, r, "Certificates retrieved successfully", func() (any, error) {
		return s.portfolio.Certificates(r.Context())
	})
}

// ProjectsMeta describes the filters applied to a projects listing.
type ProjectsMeta struct {
	Count    int     `json:"count"`
	Limit    int     `json:"limit"`
	Category *string `json:"category,omitempty"`
	Featured *bool   `json:"featured,omitempty"`
}

// handleProjects lists projects filtered by category and featured flag.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r, "limit", portfolio.DefaultProjectLimit, maxProjectLimit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	featured, err := parseQueryBool(r, "featured")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	criteria := query.Criteria{Featured: featured, Limit: &limit}
	// An empty category means all categories.
	if category := r.URL.Query().Get("category"); category != "" {
		criteria.Value = query.Ptr(category)
	}

	projects, err := s.portfolio.Projects(r.Context(), criteria)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.successResponse(w, fmt.Sprintf("Retrieved %d projects", len(projects)), projects, ProjectsMeta{
		Count:    len(projects),
		Limit:    limit,
		Category: criteria.Value,
		Featured: featured,
	})
}

// handleProject returns one project by id.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.portfolio.Project(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.successResponse(w, "Project retrieved successfully", project, nil)
}

// handleDataStats reports cached files and document counts.
func (s *Server) handleDataStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.portfolio.Stats(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.successResponse(w, "Data statistics retrieved", stats, nil)
}

// CacheClearResult reports what a cache clear dropped.
type CacheClearResult struct {
	ClearedFiles []string `json:"cleared_files"`
}

// handleCacheClear drops every cached document. Requires an admin token.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r)
	cleared := s.portfolio.Store().CachedFiles()
	s.portfolio.ClearCache()

	s.logger.Info("Data cache cleared",
		zap.String("principal", principal),
		zap.Int("files", len(cleared)))

	s.successResponse(w, "Cache cleared successfully", CacheClearResult{ClearedFiles: cleared}, nil)
}
