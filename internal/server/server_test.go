package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jonathan/portfolio-backend/internal/assistant"
	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/datastore"
	"github.com/jonathan/portfolio-backend/internal/health"
	"github.com/jonathan/portfolio-backend/internal/portfolio"
	"github.com/jonathan/portfolio-backend/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"page.json": {Data: []byte(`{"name":"Jane Doe","title":"Engineer"}`)},
		"projects.json": {Data: []byte(`[
			{"id":"p1","title":"Vision","category":"AI","featured":true},
			{"id":"p2","title":"Shop","category":"web","featured":false},
			{"id":"p3","title":"Chatbot","category":"ai","featured":true},
			{"id":"p4","title":"Blog","category":"Web"},
			{"id":"p5","title":"Forecast","category":"data","featured":true}
		]`)},
		"jobs.json":         {Data: []byte(`{"not":"a list"}`)},
		"certificates.json": {Data: []byte(`[{"name":"AWS"},{"name":"GCP"}]`)},
		"layout.json":       {Data: []byte(`{"sections": [`)},
	}
}

type testServer struct {
	*Server
	store *datastore.Store
}

type testOption func(*config.Settings, *Config)

func withRateLimit(rl *ratelimit.Config) testOption {
	return func(_ *config.Settings, c *Config) { c.RateLimit = rl }
}

func withOrigins(origins ...string) testOption {
	return func(s *config.Settings, _ *Config) { s.CORSOrigins = origins }
}

func newTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	settings := config.Defaults()
	settings.SecretKey = testSecret
	settings.DataDir = t.TempDir()
	settings.OpenAIAPIKey = "sk-test"

	cfg := Config{
		Settings:  &settings,
		RateLimit: &ratelimit.Config{Enabled: false},
	}
	for _, opt := range opts {
		opt(&settings, &cfg)
	}

	store := datastore.New(testFiles(), "data", datastore.NewMemoryCache(datastore.CacheOptions{}), nil)
	cfg.Portfolio = portfolio.NewService(store, nil)
	cfg.Assistant = assistant.New(assistant.Config{
		Providers:    []assistant.Provider{{Name: "openai", Model: "gpt-4o-mini"}},
		Primary:      "openai",
		CacheEnabled: true,
	}, nil)
	cfg.Health = health.NewService(health.Options{
		Settings:  &settings,
		Data:      cfg.Portfolio,
		Assistant: cfg.Assistant,
	})

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestNew_RequiresDependencies(t *testing.T) {
	settings := config.Defaults()
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Settings: &settings})
	assert.Error(t, err)
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body RootResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Welcome to Portfolio Go API Backend", body.Message)
	assert.Equal(t, "1.0.0", body.Version)
	assert.Equal(t, "running", body.Status)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var liveness HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &liveness))
	assert.Equal(t, "healthy", liveness.Status)

	w = ts.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "healthy", report.Status)
	require.NotNil(t, report.Data)
	assert.Equal(t, 5, report.Data.ProjectsCount)
	assert.Equal(t, 0, report.Data.ExperienceCount)
	assert.Equal(t, 2, report.Data.CertificatesCount)
	assert.Equal(t, health.StatusOperational, report.Services["ai_service"])
	assert.Equal(t, health.StatusNotConfigured, report.Services["database"])

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/health/details", ""))
	assert.True(t, env.Success)
	assert.Equal(t, "Health details retrieved", env.Message)

	env = decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/health/diagnostics", ""))
	assert.True(t, env.Success)
	var diag health.Diagnostics
	require.NoError(t, json.Unmarshal(env.Data, &diag))
	assert.Equal(t, health.CheckPass, diag.OverallStatus)
	assert.Equal(t, "Diagnostics completed: pass", env.Message)
}

func TestStatusAndConfig(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/status", ""))
	assert.Equal(t, "Application is running", env.Message)
	var status health.Status
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 8000, status.Port)

	w := ts.do(t, http.MethodGet, "/api/v1/config", "")
	env = decodeEnvelope(t, w)
	assert.Equal(t, "Configuration retrieved", env.Message)
	assert.NotContains(t, w.Body.String(), testSecret)
	assert.NotContains(t, w.Body.String(), "sk-test")

	var cfg health.ConfigStatus
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, 1, cfg.AIProvidersConfigured)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/data/profile", "")
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Profile retrieved successfully", env.Message)
	assert.JSONEq(t, `{"name":"Jane Doe","title":"Engineer"}`, string(env.Data))
	assert.False(t, env.Timestamp.IsZero())
}

func TestDocumentErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		path      string
		wantError string
		wantCode  string
	}{
		{"missing intro", "/api/v1/data/intro", "Intro data not found", CodeNotFound},
		{"malformed layout", "/api/v1/data/layout", "Layout data not found", CodeDataMalformed},
		{"non-array experience", "/api/v1/data/experience", "Experience data not found", CodeNotFound},
		{"unknown project", "/api/v1/data/projects/nope", "Project not found", CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusNotFound, w.Code)

			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
			assert.Equal(t, tt.wantCode, env.ErrorCode)
			assert.NotEmpty(t, env.RequestID)
			assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))
		})
	}
}

func projectIDs(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var projects []map[string]any
	require.NoError(t, json.Unmarshal(raw, &projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p["id"].(string))
	}
	return ids
}

func TestProjects(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{"p1", "p2", "p3", "p4", "p5"}},
		{"empty category means all", "?category=", []string{"p1", "p2", "p3", "p4", "p5"}},
		{"empty category with featured", "?category=&featured=true", []string{"p1", "p3", "p5"}},
		{"category is case-insensitive", "?category=ai", []string{"p1", "p3"}},
		{"featured", "?featured=true", []string{"p1", "p3", "p5"}},
		{"missing flag counts as not featured", "?featured=false", []string{"p2", "p4"}},
		{"featured with limit", "?featured=true&limit=2", []string{"p1", "p3"}},
		{"category and featured", "?category=WEB&featured=false", []string{"p2", "p4"}},
		{"limit zero", "?limit=0", []string{}},
		{"unknown category", "?category=games", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/v1/data/projects"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)

			env := decodeEnvelope(t, w)
			ids := projectIDs(t, env.Data)
			assert.Equal(t, tt.wantIDs, ids)

			var meta ProjectsMeta
			require.NoError(t, json.Unmarshal(env.Meta, &meta))
			assert.Equal(t, len(tt.wantIDs), meta.Count)
		})
	}
}

func TestProjects_Message(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/data/projects?category=AI", ""))
	assert.Equal(t, "Retrieved 2 projects", env.Message)

	var meta ProjectsMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, portfolio.DefaultProjectLimit, meta.Limit)
	require.NotNil(t, meta.Category)
	assert.Equal(t, "AI", *meta.Category)
	assert.Nil(t, meta.Featured)
}

func TestProjects_EmptyCategoryNotEchoed(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/data/projects?category=", ""))
	assert.Equal(t, "Retrieved 5 projects", env.Message)

	var meta ProjectsMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Nil(t, meta.Category)
}

func TestProjects_InvalidQuery(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"?limit=abc", "?limit=-1", "?featured=maybe"} {
		t.Run(q, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/v1/data/projects"+q, "")
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, CodeValidation, decodeEnvelope(t, w).ErrorCode)
		})
	}
}

func TestProjectByID(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/data/projects/p3", ""))
	assert.Equal(t, "Project retrieved successfully", env.Message)

	var project map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &project))
	assert.Equal(t, "Chatbot", project["title"])
}

func TestCertificates(t *testing.T) {
	ts := newTestServer(t)

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/data/certificates", ""))
	assert.Equal(t, "Certificates retrieved successfully", env.Message)
	assert.JSONEq(t, `[{"name":"AWS"},{"name":"GCP"}]`, string(env.Data))
}

func TestDataStats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/v1/data/profile", "")

	env := decodeEnvelope(t, ts.do(t, http.MethodGet, "/api/v1/data/stats", ""))
	var stats portfolio.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))

	assert.Equal(t, "data", stats.DataDirectory)
	assert.Equal(t, []string{"page.json"}, stats.CachedFiles)
	assert.Equal(t, 5, stats.ProjectsCount)
	assert.Equal(t, 0, stats.ExperienceCount)
	assert.Equal(t, 2, stats.CertificatesCount)
}

func TestCacheClear(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/v1/data/profile", "")
	ts.do(t, http.MethodGet, "/api/v1/data/projects", "")
	require.Equal(t, 2, ts.store.CacheSize())

	w := ts.do(t, http.MethodPost, "/api/v1/data/cache/clear", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, decodeEnvelope(t, w).ErrorCode)
	assert.Equal(t, 2, ts.store.CacheSize())

	w = ts.do(t, http.MethodPost, "/api/v1/data/cache/clear", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := ts.jwtService.GenerateToken("admin")
	require.NoError(t, err)

	w = ts.do(t, http.MethodPost, "/api/v1/data/cache/clear", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, "Cache cleared successfully", env.Message)
	var result CacheClearResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []string{"page.json", "projects.json"}, result.ClearedFiles)
	assert.Zero(t, ts.store.CacheSize())
}

func TestAIChat(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/ai/chat", `{"message":"Tell me about your projects","user_id":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp assistant.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "text", resp.ContentType)
	assert.Contains(t, resp.Content, "projects")
	assert.InDelta(t, 0.85, resp.Confidence, 1e-9)
	assert.Equal(t, "openai", resp.ProviderInfo.Provider)
	assert.Equal(t, "gpt-4o-mini", resp.ProviderInfo.Model)
}

func TestAIChat_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty body", "", http.StatusBadRequest, CodeBadRequest},
		{"invalid json", `{"message":`, http.StatusBadRequest, CodeBadRequest},
		{"missing message", `{"user_id":"u1"}`, http.StatusUnprocessableEntity, CodeValidation},
		{"too long", `{"message":"` + strings.Repeat("a", 4001) + `"}`, http.StatusUnprocessableEntity, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/ai/chat", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeEnvelope(t, w).ErrorCode)
		})
	}
}

func TestAIClassify(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/ai/classify", `{"message":"What Python projects have you built?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp assistant.Classification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, assistant.TypeQuestion, resp.Type)
	assert.Equal(t, "project_inquiry", resp.Intent)
	assert.InDelta(t, 0.78, resp.Confidence, 1e-9)
}

func TestAIStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/ai/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status assistant.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "operational", status.Status)
	assert.Equal(t, map[string]bool{"openai": true}, status.Providers)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, withRateLimit(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Minute,
	}))

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, "/api/v1/status", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decodeEnvelope(t, w).ErrorCode)

	w = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code, "liveness probe is never limited")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/api/v1/ai/chat", "", "Origin", "https://example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	restricted := newTestServer(t, withOrigins("https://example.com"))
	w = restricted.do(t, http.MethodGet, "/health", "", "Origin", "https://example.com")
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = restricted.do(t, http.MethodGet, "/health", "", "Origin", "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeRouteNotFound, decodeEnvelope(t, w).ErrorCode)
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/data/intro", "", "X-Request-ID", "trace-123")
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-123", decodeEnvelope(t, w).RequestID)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ts := newTestServer(t)
	ts.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
