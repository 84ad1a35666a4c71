package portfolio

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jonathan/portfolio-backend/internal/datastore"
	"github.com/jonathan/portfolio-backend/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(files fstest.MapFS) *Service {
	store := datastore.New(files, "data", datastore.NewMemoryCache(datastore.CacheOptions{}), nil)
	return NewService(store, nil)
}

func fullFixture() fstest.MapFS {
	return fstest.MapFS{
		"page.json":   {Data: []byte(`{"name": "Jane Doe"}`)},
		"intro.json":  {Data: []byte(`{"headline": "Hi"}`)},
		"layout.json": {Data: []byte(`{"sections": ["intro", "projects"]}`)},
		"projects.json": {Data: []byte(`[
			{"id": "p1", "category": "web", "featured": true},
			{"id": "p2", "category": "ai", "featured": false},
			{"id": "p3", "category": "AI", "featured": true}
		]`)},
		"jobs.json":         {Data: []byte(`[{"company": "Acme"}, {"company": "Globex"}]`)},
		"certificates.json": {Data: []byte(`[{"title": "AWS"}]`)},
	}
}

func TestObjectDocuments(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx := context.Background()

	profile, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.(map[string]any)["name"])

	intro, err := svc.Intro(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi", intro.(map[string]any)["headline"])

	layout, err := svc.Layout(ctx)
	require.NoError(t, err)
	assert.NotNil(t, layout)
}

func TestProfile_Missing(t *testing.T) {
	svc := newTestService(fstest.MapFS{})

	_, err := svc.Profile(context.Background())
	var nf *ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Profile data not found", err.Error())
}

func TestProfile_Malformed(t *testing.T) {
	svc := newTestService(fstest.MapFS{"page.json": {Data: []byte(`{"name":`)}})

	_, err := svc.Profile(context.Background())
	var mf *ErrMalformed
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "Profile data not found", err.Error())

	var parseErr *datastore.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestProjects(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx := context.Background()

	all, err := svc.Projects(ctx, query.Criteria{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ai, err := svc.Projects(ctx, query.Criteria{Value: query.Ptr("Ai")})
	require.NoError(t, err)
	require.Len(t, ai, 2)
	assert.Equal(t, "p2", ai[0]["id"])

	featured, err := svc.Projects(ctx, query.Criteria{Featured: query.Ptr(true), Limit: query.Ptr(1)})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "p1", featured[0]["id"])
}

func TestProjects_DefaultLimit(t *testing.T) {
	raw := []byte("[")
	for i := 0; i < 60; i++ {
		if i > 0 {
			raw = append(raw, ',')
		}
		raw = append(raw, []byte(`{"id": "x"}`)...)
	}
	raw = append(raw, ']')

	svc := newTestService(fstest.MapFS{"projects.json": {Data: raw}})
	got, err := svc.Projects(context.Background(), query.Criteria{})
	require.NoError(t, err)
	assert.Len(t, got, DefaultProjectLimit)
}

func TestProjects_NotAList(t *testing.T) {
	svc := newTestService(fstest.MapFS{"projects.json": {Data: []byte(`{"id": "p1"}`)}})

	_, err := svc.Projects(context.Background(), query.Criteria{})
	var nf *ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Projects data not found", err.Error())
}

func TestProject(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx := context.Background()

	rec, err := svc.Project(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, "AI", rec["category"])

	_, err = svc.Project(ctx, "p9")
	assert.EqualError(t, err, "Project not found")
}

func TestListDocuments(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx := context.Background()

	jobs, err := svc.Experience(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	certs, err := svc.Certificates(ctx)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestListDocuments_ObjectIsNotFound(t *testing.T) {
	svc := newTestService(fstest.MapFS{
		"jobs.json":         {Data: []byte(`{"company": "Acme"}`)},
		"certificates.json": {Data: []byte(`"nope"`)},
	})
	ctx := context.Background()

	_, err := svc.Experience(ctx)
	assert.EqualError(t, err, "Experience data not found")

	_, err = svc.Certificates(ctx)
	assert.EqualError(t, err, "Certificates data not found")
}

func TestStats(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx := context.Background()

	_, err := svc.Profile(ctx)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, "data", stats.DataDirectory)
	assert.Equal(t, []string{"page.json"}, stats.CachedFiles, "cached files are captured before counting")
	assert.Equal(t, 1, stats.CacheSize)
	assert.Equal(t, 3, stats.ProjectsCount)
	assert.Equal(t, 2, stats.ExperienceCount)
	assert.Equal(t, 1, stats.CertificatesCount)

	assert.Equal(t, 4, svc.Store().CacheSize())
}

func TestStats_MissingDocumentsCountZero(t *testing.T) {
	svc := newTestService(fstest.MapFS{"projects.json": {Data: []byte(`{"not": "a list"}`)}})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.ProjectsCount)
	assert.Zero(t, stats.ExperienceCount)
	assert.Zero(t, stats.CertificatesCount)
}

func TestStats_CancelledContext(t *testing.T) {
	svc := newTestService(fullFixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClearCache(t *testing.T) {
	svc := newTestService(fullFixture())
	_, err := svc.Profile(context.Background())
	require.NoError(t, err)

	svc.ClearCache()
	assert.Zero(t, svc.Store().CacheSize())
}
