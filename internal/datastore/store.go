// Package datastore loads portfolio JSON documents from a data directory and
// memoizes them in an injectable cache.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Well-known document names served by the API.
const (
	ProfileFile      = "page.json"
	IntroFile        = "intro.json"
	LayoutFile       = "layout.json"
	ProjectsFile     = "projects.json"
	ExperienceFile   = "jobs.json"
	CertificatesFile = "certificates.json"
)

// Store reads named JSON documents and caches successful parses.
type Store struct {
	fsys   fs.FS
	dir    string
	cache  Cache
	logger *zap.Logger
	group  singleflight.Group

	// mu orders cache writes against Clear; gen counts clears.
	mu  sync.Mutex
	gen uint64
}

// New creates a Store over fsys. dir is informational (stats, logs).
// A nil cache disables caching; a nil logger discards log output.
func New(fsys fs.FS, dir string, cache Cache, logger *zap.Logger) *Store {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		fsys:   fsys,
		dir:    dir,
		cache:  cache,
		logger: logger,
	}
}

// NewDir creates a Store reading from a directory on disk.
func NewDir(dir string, cache Cache, logger *zap.Logger) *Store {
	return New(os.DirFS(dir), dir, cache, logger)
}

// Load returns the parsed document for name. A cached document is returned without
// touching the filesystem. Missing, unreadable and malformed files never produce a
// Go error from Load; the outcome is carried in Document.Status.
func (s *Store) Load(ctx context.Context, name string) Document {
	if v, ok := s.cache.Get(name); ok {
		return Document{Name: name, Value: v, Status: StatusFound}
	}

	if err := ctx.Err(); err != nil {
		return Document{Name: name, Status: StatusNotFound, Err: err}
	}

	// Concurrent misses for the same file share one read. The key carries the
	// generation so a load started after Clear never joins an older read.
	gen := s.generation()
	key := name + "#" + strconv.FormatUint(gen, 10)
	res, _, _ := s.group.Do(key, func() (any, error) {
		return s.read(name, gen), nil
	})
	return res.(Document)
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// read loads and parses one file. The result is cached only if no Clear
// happened since gen was taken.
func (s *Store) read(name string, gen uint64) Document {
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("Data file not found", zap.String("file", name), zap.String("dir", s.dir))
		} else {
			s.logger.Error("Error loading data file", zap.String("file", name), zap.Error(err))
		}
		return Document{Name: name, Status: StatusNotFound, Err: &LoadError{File: name, Cause: err}}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Error("Error parsing JSON data file", zap.String("file", name), zap.Error(err))
		return Document{Name: name, Status: StatusParseError, Err: &ParseError{File: name, Cause: err}}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.cache.Put(name, value)
	}
	s.mu.Unlock()
	s.logger.Debug("Loaded data file", zap.String("file", name))
	return Document{Name: name, Value: value, Status: StatusFound}
}

// Clear empties the whole cache.
func (s *Store) Clear() {
	s.mu.Lock()
	s.gen++
	s.cache.Clear()
	s.mu.Unlock()
	s.logger.Info("Data cache cleared")
}

// CachedFiles lists the filenames currently cached.
func (s *Store) CachedFiles() []string {
	return s.cache.Keys()
}

// CacheSize returns the number of cached documents.
func (s *Store) CacheSize() int {
	return s.cache.Len()
}

// Dir returns the data directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}
