package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/archanaanairr/vb6/internal/api"
	"github.com/archanaanairr/vb6/internal/artifacts"
	"github.com/archanaanairr/vb6/internal/azure"
	"github.com/archanaanairr/vb6/internal/cache"
	"github.com/archanaanairr/vb6/internal/config"
	"github.com/archanaanairr/vb6/internal/convert"
	"github.com/archanaanairr/vb6/internal/events"
	"github.com/archanaanairr/vb6/internal/gemini"
	"github.com/archanaanairr/vb6/internal/gitclone"
	"github.com/archanaanairr/vb6/internal/project"
	"github.com/archanaanairr/vb6/internal/slack"
	"github.com/archanaanairr/vb6/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("vb6 converter starting", "port", cfg.Port, "backend", cfg.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Model backend
	var backend convert.Backend
	switch cfg.Backend {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, convert.SystemPrompt)
		if err != nil {
			slog.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		backend = client
		slog.Info("gemini backend ready", "model", cfg.GeminiModel)
	default:
		backend = azure.NewClient(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeployment, cfg.AzureAPIVersion, convert.SystemPrompt)
		slog.Info("azure backend ready", "deployment", cfg.AzureDeployment)
	}

	// Conversion pipeline
	results, err := cache.New[convert.Result](cfg.CacheSize)
	if err != nil {
		slog.Error("failed to create result cache", "error", err)
		os.Exit(1)
	}
	driver := convert.NewDriver(backend, cfg.Retries, slog.Default())
	converter := convert.NewConverter(driver, results, cfg.ChunkWorkers, cfg.ConcurrentModules, slog.Default())
	builder := project.NewBuilder(converter, slog.Default())

	// Git cloner for repository conversions
	cloner := gitclone.NewCloner(cfg.GitBin)

	// Database (optional, conversions work without job history)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, job history disabled")
	}

	// NATS events (optional)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, job events disabled")
	}

	// Slack poster (optional)
	var slackPoster *slack.Poster
	if cfg.SlackWebhookURL != "" {
		slackPoster = slack.NewPoster(cfg.SlackWebhookURL, slog.Default())
		slog.Info("slack poster ready")
	} else {
		slog.Warn("slack not configured, running without notifications")
	}

	// Artifact store (optional)
	var artifactStore *artifacts.Store
	if cfg.Artifact.Enabled() {
		artifactStore, err = artifacts.New(artifacts.Config{
			Endpoint:  cfg.Artifact.Endpoint,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			Region:    cfg.Artifact.Region,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			slog.Error("failed to configure artifact store", "error", err)
			os.Exit(1)
		}
		slog.Info("artifact store ready", "bucket", cfg.Artifact.Bucket)
	} else {
		slog.Warn("artifact store not configured, result archives are not retained")
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, builder, cloner, db, eventsClient, slackPoster, artifactStore, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("vb6 converter ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("vb6 converter stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
