// Package logging builds the zap logger used by the API server and CLI.
// Console output goes to stderr; when a log directory is configured, every entry
// is also written to a complete log (appended across runs) and a per-session log.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Level         string // debug, info, warn, error
	Dir           string // empty disables file output
	CompleteFile  string // file name inside Dir that accumulates all runs
	SessionPrefix string // prefix for the per-run file
	Console       bool   // colored console output to stderr
}

// ParseLevel converts a level name into a zap level. Unknown names fall back to info.
func ParseLevel(name string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New creates a logger from options. The returned cleanup func syncs and closes file outputs.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	var cores []zapcore.Core
	var files []*os.File

	if opts.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", opts.Dir, err)
		}

		complete := opts.CompleteFile
		if complete == "" {
			complete = "complete.log"
		}
		prefix := opts.SessionPrefix
		if prefix == "" {
			prefix = "session"
		}
		session := fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("20060102_150405"))

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		for _, name := range []string{complete, session} {
			f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				closeAll(files)
				return nil, nil, fmt.Errorf("failed to open log file %s: %w", name, err)
			}
			files = append(files, f)
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
		}
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	cleanup := func() {
		_ = logger.Sync()
		closeAll(files)
	}
	return logger, cleanup, nil
}

// Nop returns a logger that discards everything. Used by tests and library defaults.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
