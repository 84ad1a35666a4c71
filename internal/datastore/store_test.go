package datastore

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFS records how many times each file is opened.
type countingFS struct {
	fsys  fs.FS
	mu    sync.Mutex
	opens map[string]int
}

func newCountingFS(files fstest.MapFS) *countingFS {
	return &countingFS{fsys: files, opens: make(map[string]int)}
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.fsys.Open(name)
}

func (c *countingFS) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"projects.json": {Data: []byte(`[{"id":"p1","category":"AI","featured":true},{"id":"p2","category":"web"}]`)},
		"page.json":     {Data: []byte(`{"name":"Jane Doe","title":"Engineer"}`)},
		"broken.json":   {Data: []byte(`{"name": "missing brace"`)},
	}
}

func TestLoad_FoundAndMemoized(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)
	ctx := context.Background()

	first := store.Load(ctx, "projects.json")
	require.True(t, first.Found())
	arr, ok := first.Array()
	require.True(t, ok)
	assert.Len(t, arr, 2)

	second := store.Load(ctx, "projects.json")
	require.True(t, second.Found())
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 1, fsys.count("projects.json"), "second load must not touch the filesystem")
}

func TestLoad_ObjectDocument(t *testing.T) {
	store := New(testFiles(), "data", NewMemoryCache(CacheOptions{}), nil)

	doc := store.Load(context.Background(), "page.json")
	require.True(t, doc.Found())

	obj, ok := doc.Object()
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", obj["name"])

	_, isArray := doc.Array()
	assert.False(t, isArray)
}

func TestLoad_MissingFile(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)

	doc := store.Load(context.Background(), "nope.json")
	assert.Equal(t, StatusNotFound, doc.Status)
	assert.False(t, doc.Found())
	assert.Nil(t, doc.Value)

	var loadErr *LoadError
	require.True(t, errors.As(doc.Err, &loadErr))
	assert.Equal(t, "nope.json", loadErr.File)
	assert.True(t, errors.Is(doc.Err, fs.ErrNotExist))
	assert.Empty(t, store.CachedFiles())
}

func TestLoad_MalformedFile(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)
	ctx := context.Background()

	doc := store.Load(ctx, "broken.json")
	assert.Equal(t, StatusParseError, doc.Status)
	assert.False(t, doc.Found())

	var parseErr *ParseError
	require.True(t, errors.As(doc.Err, &parseErr))
	assert.Equal(t, "broken.json", parseErr.File)
	assert.Contains(t, doc.Err.Error(), "malformed")

	// Failures are not cached.
	store.Load(ctx, "broken.json")
	assert.Equal(t, 2, fsys.count("broken.json"))
}

func TestLoad_InvalidPathIsNotFound(t *testing.T) {
	store := New(testFiles(), "data", NewMemoryCache(CacheOptions{}), nil)

	doc := store.Load(context.Background(), "../secrets.json")
	assert.Equal(t, StatusNotFound, doc.Status)
	assert.Error(t, doc.Err)
}

func TestLoad_CancelledContextSkipsRead(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := store.Load(ctx, "projects.json")
	assert.Equal(t, StatusNotFound, doc.Status)
	assert.ErrorIs(t, doc.Err, context.Canceled)
	assert.Equal(t, 0, fsys.count("projects.json"))
}

func TestLoad_CachedServedEvenWithCancelledContext(t *testing.T) {
	store := New(testFiles(), "data", NewMemoryCache(CacheOptions{}), nil)
	require.True(t, store.Load(context.Background(), "page.json").Found())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, store.Load(ctx, "page.json").Found())
}

func TestClear_ForcesReread(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)
	ctx := context.Background()

	store.Load(ctx, "projects.json")
	store.Load(ctx, "page.json")
	assert.Equal(t, []string{"page.json", "projects.json"}, store.CachedFiles())
	assert.Equal(t, 2, store.CacheSize())

	store.Clear()
	assert.Empty(t, store.CachedFiles())

	store.Load(ctx, "projects.json")
	assert.Equal(t, 2, fsys.count("projects.json"))
}

func TestLoad_NilCacheAlwaysReads(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, store.Load(ctx, "page.json").Found())
	}
	assert.Equal(t, 3, fsys.count("page.json"))
	assert.Equal(t, 0, store.CacheSize())
}

func TestLoad_Concurrent(t *testing.T) {
	fsys := newCountingFS(testFiles())
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)

	var wg sync.WaitGroup
	results := make([]Document, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Load(context.Background(), "projects.json")
		}(i)
	}
	wg.Wait()

	for _, doc := range results {
		assert.True(t, doc.Found())
	}
	assert.GreaterOrEqual(t, fsys.count("projects.json"), 1)
	assert.Equal(t, 1, store.CacheSize())
}

// gatedFS serves the first Open from old and blocks it until release is
// closed. Later opens are served from current without blocking.
type gatedFS struct {
	old, current fs.FS
	mu           sync.Mutex
	opens        int
	started      chan struct{}
	release      chan struct{}
}

func newGatedFS(old, current fstest.MapFS) *gatedFS {
	return &gatedFS{
		old:     old,
		current: current,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	g.mu.Lock()
	g.opens++
	first := g.opens == 1
	g.mu.Unlock()

	if first {
		close(g.started)
		<-g.release
		return g.old.Open(name)
	}
	return g.current.Open(name)
}

func (g *gatedFS) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens
}

func versionOf(t *testing.T, doc Document) string {
	t.Helper()
	obj, ok := doc.Object()
	require.True(t, ok)
	return obj["v"].(string)
}

func TestClear_DuringReadDoesNotRecache(t *testing.T) {
	fsys := newGatedFS(
		fstest.MapFS{"a.json": {Data: []byte(`{"v":"old"}`)}},
		fstest.MapFS{"a.json": {Data: []byte(`{"v":"new"}`)}},
	)
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)
	ctx := context.Background()

	done := make(chan Document, 1)
	go func() { done <- store.Load(ctx, "a.json") }()

	<-fsys.started
	store.Clear()
	close(fsys.release)

	inflight := <-done
	require.True(t, inflight.Found())
	assert.Equal(t, "old", versionOf(t, inflight))
	assert.Empty(t, store.CachedFiles(), "a read that straddles Clear is not cached")

	next := store.Load(ctx, "a.json")
	assert.Equal(t, "new", versionOf(t, next))
	assert.Equal(t, 2, fsys.count())
	assert.Equal(t, []string{"a.json"}, store.CachedFiles())
}

func TestClear_LoadAfterClearDoesNotJoinOlderRead(t *testing.T) {
	fsys := newGatedFS(
		fstest.MapFS{"a.json": {Data: []byte(`{"v":"old"}`)}},
		fstest.MapFS{"a.json": {Data: []byte(`{"v":"new"}`)}},
	)
	store := New(fsys, "data", NewMemoryCache(CacheOptions{}), nil)
	ctx := context.Background()

	done := make(chan Document, 1)
	go func() { done <- store.Load(ctx, "a.json") }()

	<-fsys.started
	store.Clear()

	fresh := store.Load(ctx, "a.json")
	assert.Equal(t, "new", versionOf(t, fresh))
	assert.Equal(t, 2, fsys.count())

	close(fsys.release)
	<-done

	cached := store.Load(ctx, "a.json")
	assert.Equal(t, "new", versionOf(t, cached), "the older read must not overwrite the cache")
	assert.Equal(t, 2, fsys.count())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "found", StatusFound.String())
	assert.Equal(t, "not_found", StatusNotFound.String())
	assert.Equal(t, "parse_error", StatusParseError.String())
}
