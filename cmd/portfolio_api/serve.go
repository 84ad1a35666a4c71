package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/portfolio-backend/internal/assistant"
	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/datastore"
	"github.com/jonathan/portfolio-backend/internal/db"
	"github.com/jonathan/portfolio-backend/internal/health"
	"github.com/jonathan/portfolio-backend/internal/logging"
	"github.com/jonathan/portfolio-backend/internal/portfolio"
	"github.com/jonathan/portfolio-backend/internal/schemas"
	"github.com/jonathan/portfolio-backend/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the portfolio data, assistant and health endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if cmd.Flags().Changed("host") {
		settings.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		settings.Port = servePort
	}

	logger, cleanup, err := logging.New(logging.Options{
		Level:         settings.LogLevel,
		Dir:           settings.LogDir,
		CompleteFile:  settings.LogCompleteFile,
		SessionPrefix: settings.LogSessionPrefix,
		Console:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer cleanup()

	for _, warning := range settings.Validation() {
		logger.Warn(warning)
	}

	srv, err := buildServer(cmd.Context(), settings, logger)
	if err != nil {
		return err
	}

	logger.Info("Application startup",
		zap.String("app", settings.AppName),
		zap.String("version", settings.AppVersion),
		zap.String("data_dir", settings.DataDir))
	return srv.Start()
}

// buildServer wires the data store, services and HTTP server from settings.
func buildServer(ctx context.Context, settings *config.Settings, logger *zap.Logger) (*server.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var cache datastore.Cache = datastore.NopCache{}
	if settings.CacheEnabled {
		cache = datastore.NewMemoryCache(datastore.CacheOptions{
			MaxEntries: settings.CacheMaxSize,
			TTL:        settings.CacheTTL.Std(),
		})
	}
	store := datastore.NewDir(settings.DataDir, cache, logger.Named("datastore"))
	data := portfolio.NewService(store, logger.Named("portfolio"))

	providers := settings.ConfiguredProviders()
	assistantProviders := make([]assistant.Provider, 0, len(providers))
	for _, p := range providers {
		assistantProviders = append(assistantProviders, assistant.Provider{Name: p.Name, Model: p.Model})
	}
	ai := assistant.New(assistant.Config{
		Providers:    assistantProviders,
		Primary:      settings.PrimaryLLMProvider,
		CacheEnabled: settings.CacheEnabled,
	}, logger.Named("assistant"))

	healthOpts := health.Options{
		Settings:  settings,
		Data:      data,
		Assistant: ai,
		Schemas: func() schemas.Report {
			return schemas.ValidateFS(os.DirFS(settings.DataDir))
		},
		Logger: logger.Named("health"),
	}

	var database *db.DB
	if settings.DatabaseURL != "" {
		var err error
		database, err = db.Open(ctx, db.Config{
			URL:      settings.DatabaseURL,
			PoolSize: settings.DBPoolSize,
			Timeout:  settings.DBTimeout.Std(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		healthOpts.Database = database
	}

	var watcher *datastore.Watcher
	if settings.DataWatch {
		var err error
		watcher, err = datastore.NewWatcher(settings.DataDir, store, 0, logger.Named("watcher"))
		if err != nil {
			database.Close()
			return nil, err
		}
	}

	srv, err := server.New(server.Config{
		Settings:  settings,
		Portfolio: data,
		Assistant: ai,
		Health:    health.NewService(healthOpts),
		DB:        database,
		Watcher:   watcher,
		Logger:    logger.Named("server"),
	})
	if err != nil {
		if watcher != nil {
			watcher.Stop()
		}
		database.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, nil
}
