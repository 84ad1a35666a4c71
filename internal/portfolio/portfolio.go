// Package portfolio exposes the portfolio documents (profile, projects, experience,
// certificates) on top of the data store and query layer.
package portfolio

import (
	"context"
	"fmt"

	"github.com/jonathan/portfolio-backend/internal/datastore"
	"github.com/jonathan/portfolio-backend/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultProjectLimit is applied when a projects query names no limit.
const DefaultProjectLimit = 50

// ErrNotFound indicates a document or record is absent or has the wrong shape.
type ErrNotFound struct {
	Resource string
	Cause    error
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *ErrNotFound) Unwrap() error {
	return e.Cause
}

// ErrMalformed indicates the backing document exists but is not valid JSON.
type ErrMalformed struct {
	Resource string
	Cause    error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *ErrMalformed) Unwrap() error {
	return e.Cause
}

// Stats summarizes the data directory and cache.
type Stats struct {
	DataDirectory     string   `json:"data_directory"`
	CachedFiles       []string `json:"cached_files"`
	CacheSize         int      `json:"cache_size"`
	ProjectsCount     int      `json:"projects_count"`
	ExperienceCount   int      `json:"experience_count"`
	CertificatesCount int      `json:"certificates_count"`
}

// Service serves portfolio documents.
type Service struct {
	store  *datastore.Store
	logger *zap.Logger
}

// NewService creates a Service backed by store.
func NewService(store *datastore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Store returns the underlying data store.
func (s *Service) Store() *datastore.Store {
	return s.store
}

// document loads file and converts a non-found result into a typed error.
func (s *Service) document(ctx context.Context, resource, file string) (datastore.Document, error) {
	doc := s.store.Load(ctx, file)
	switch doc.Status {
	case datastore.StatusFound:
		return doc, nil
	case datastore.StatusParseError:
		return doc, &ErrMalformed{Resource: resource, Cause: doc.Err}
	default:
		return doc, &ErrNotFound{Resource: resource, Cause: doc.Err}
	}
}

// Profile returns page.json.
func (s *Service) Profile(ctx context.Context) (any, error) {
	doc, err := s.document(ctx, "Profile data", datastore.ProfileFile)
	return doc.Value, err
}

// Intro returns intro.json.
func (s *Service) Intro(ctx context.Context) (any, error) {
	doc, err := s.document(ctx, "Intro data", datastore.IntroFile)
	return doc.Value, err
}

// Layout returns layout.json.
func (s *Service) Layout(ctx context.Context) (any, error) {
	doc, err := s.document(ctx, "Layout data", datastore.LayoutFile)
	return doc.Value, err
}

// Projects returns the projects matching c. A nil Limit means DefaultProjectLimit.
func (s *Service) Projects(ctx context.Context, c query.Criteria) ([]query.Record, error) {
	doc, err := s.document(ctx, "Projects data", datastore.ProjectsFile)
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Array(); !ok {
		s.logger.Error("Projects data is not a list", zap.String("file", datastore.ProjectsFile))
		return nil, &ErrNotFound{Resource: "Projects data"}
	}

	if c.Limit == nil {
		c.Limit = query.Ptr(DefaultProjectLimit)
	}
	return query.Filter(doc.Value, c), nil
}

// Project returns the project whose id equals id.
func (s *Service) Project(ctx context.Context, id string) (query.Record, error) {
	doc, err := s.document(ctx, "Project", datastore.ProjectsFile)
	if err != nil {
		return nil, err
	}
	rec, ok := query.FindByID(doc.Value, id)
	if !ok {
		return nil, &ErrNotFound{Resource: "Project"}
	}
	return rec, nil
}

// Experience returns jobs.json, which must be an array.
func (s *Service) Experience(ctx context.Context) ([]any, error) {
	return s.list(ctx, "Experience data", datastore.ExperienceFile)
}

// Certificates returns certificates.json, which must be an array.
func (s *Service) Certificates(ctx context.Context) ([]any, error) {
	return s.list(ctx, "Certificates data", datastore.CertificatesFile)
}

func (s *Service) list(ctx context.Context, resource, file string) ([]any, error) {
	doc, err := s.document(ctx, resource, file)
	if err != nil {
		return nil, err
	}
	arr, ok := doc.Array()
	if !ok {
		return nil, &ErrNotFound{Resource: resource}
	}
	return arr, nil
}

// Stats reports the cached files (as of the call) and the size of each list document.
// Absent or malformed documents count as zero.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		DataDirectory: s.store.Dir(),
		CachedFiles:   s.store.CachedFiles(),
		CacheSize:     s.store.CacheSize(),
	}

	g, ctx := errgroup.WithContext(ctx)
	count := func(file string, dst *int) {
		g.Go(func() error {
			doc := s.store.Load(ctx, file)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			*dst = query.Count(doc.Value)
			return nil
		})
	}
	count(datastore.ProjectsFile, &stats.ProjectsCount)
	count(datastore.ExperienceFile, &stats.ExperienceCount)
	count(datastore.CertificatesFile, &stats.CertificatesCount)

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("failed to collect data stats: %w", err)
	}
	return stats, nil
}

// ClearCache drops every cached document.
func (s *Service) ClearCache() {
	s.store.Clear()
}
