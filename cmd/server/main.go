package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/voicecollector/internal/collector"
	"github.com/alkime/voicecollector/internal/config"
	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/alkime/voicecollector/internal/keyring"
	"github.com/alkime/voicecollector/internal/logger"
	"github.com/alkime/voicecollector/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	l := logger.SetupLogger(cfg)

	// Log startup information
	l.Info("Starting voice collector server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dry_run", cfg.DryRun,
	)

	svc, err := collector.Open(collector.Options{
		DataDir:     cfg.DataDir,
		SamplesDir:  cfg.SamplesDir,
		DryRun:      cfg.DryRun,
		DryRunDelay: cfg.DryRunDelay,
		Retry: dataset.RetryConfig{
			Attempts: cfg.UploadAttempts,
			Delay:    cfg.UploadDelay,
			MaxDelay: dataset.DefaultRetryConfig().MaxDelay,
		},
		OpenAIAPIKey:    keyring.Resolve(keyring.OpenAI, cfg.OpenAIAPIKey),
		AnthropicAPIKey: keyring.Resolve(keyring.Anthropic, cfg.AnthropicAPIKey),
		Transcribe:      cfg.Transcribe,
		Logger:          l,
	})
	if err != nil {
		l.Error("Failed to open services", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	deps := server.Deps{
		Uploader: svc.Uploader,
		Samples:  svc.Samples,
		Stats:    svc.Manifest,
	}
	if svc.Hinter != nil {
		deps.Hints = svc.Hinter
	}

	srv, err := server.New(cfg, l, deps)
	if err != nil {
		l.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, srv); err != nil {
		l.Error("Server stopped with error", "error", err)
		os.Exit(1) //nolint:gocritic // deferred closes are best effort
	}

	l.Info("Server stopped")
}
