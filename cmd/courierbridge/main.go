package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courierbridge/internal/config"
	"courierbridge/internal/constants"
	"courierbridge/internal/database"
	"courierbridge/internal/models"
	"courierbridge/internal/privacy"
	"courierbridge/internal/retry"
	"courierbridge/internal/service"
	"courierbridge/internal/state"
	"courierbridge/internal/tracing"
	"courierbridge/pkg/broker"
	"courierbridge/pkg/push"
	"courierbridge/pkg/wasender"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("CourierBridge %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting CourierBridge")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg)

	logger.WithFields(logrus.Fields{
		"groups":           len(cfg.Groups),
		"wasender_api_key": privacy.MaskSecret(cfg.Wasender.APIKey),
		"webhook_secret":   privacy.MaskSecret(cfg.Server.WebhookSecret),
		"dry_run":          cfg.Wasender.DryRun,
	}).Info("Configuration loaded")

	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the delivery journal with exponential backoff: sqlite on
	// shared storage can be briefly unavailable at boot.
	var journal *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultBackoffInitialMs * time.Millisecond,
		MaxDelay:     constants.DefaultBackoffMaxSec * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultMaxAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		journal, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to open delivery journal: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to open delivery journal after retries: %w", err)
	}
	defer journal.Close()

	sender := wasender.NewClient(
		cfg.Wasender.APIBaseURL,
		cfg.Wasender.APIKey,
		time.Duration(cfg.Wasender.TimeoutSec)*time.Second,
		cfg.Wasender.DryRun,
		logger,
	)

	var pushClient service.PushSender
	if cfg.Push.Enabled {
		pushClient = push.NewClient(cfg.Push.APIBaseURL, cfg.Push.APIKey, cfg.Push.AppID, cfg.Push.BatchSize, logger)
		logger.Info("Push notifications enabled")
	}

	var chatPublisher service.ChatPublisher
	if cfg.Broker.Enabled {
		publisher := broker.NewPublisher(cfg.Broker.URL, cfg.Broker.QueueSize, logger)
		publisher.Start()
		defer publisher.Close()
		chatPublisher = publisher
		logger.Info("Downstream broker publisher started")
	}

	dedup := state.NewDedupWindow(constants.DefaultDedupWindowMin*time.Minute, nil)
	orders := state.NewOrderCache(constants.DefaultOrderTTLHours*time.Hour, nil)

	delivery := service.NewDeliveryEngine(sender, journal, cfg.Delivery, logger)
	events := service.NewRouter(cfg.Groups, dedup, orders, delivery, pushClient, chatPublisher, logger)

	scheduler := service.NewScheduler(journal, cfg.RetentionDays, cfg.Server.CleanupIntervalHours, logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	server := NewServer(cfg, events, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, cfg *models.Config) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}
	if cfg.LogLevel == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}
