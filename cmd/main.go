package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/video-feed-gateway/internal/config"
	"github.com/video-feed-gateway/internal/feed"
	"github.com/video-feed-gateway/internal/health"
	"github.com/video-feed-gateway/internal/metrics"
	"github.com/video-feed-gateway/internal/monitor"
	"github.com/video-feed-gateway/internal/relay"
	"github.com/video-feed-gateway/internal/storage"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.json", "path to service config")
	once := flag.Bool("once", false, "run a single health check and exit (for external schedulers)")
	flag.Parse()

	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
	log.Infof("Starting Video Feed Gateway v%s", version)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set log level
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		log.SetFormatter(&log.TextFormatter{})
	}

	// Initialize metrics
	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace)

	// Initialize report storage
	store, err := storage.NewStorage(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the endpoint document; a malformed document is fatal at startup
	// rather than something to probe around.
	feedStore := feed.NewStore(cfg.Feed)
	if err := feedStore.Load(ctx); err != nil {
		log.Fatalf("Failed to load endpoint document: %v", err)
	}

	if cfg.Feed.WatchFile {
		watcher, err := feedStore.Watch(ctx)
		if err != nil {
			log.Warnf("Failed to watch endpoint document: %v (live reload disabled)", err)
		} else {
			defer watcher.Close()
		}
	}

	// Initialize prober and runner
	prober, err := health.NewProber(cfg.Health, metricsCollector)
	if err != nil {
		log.Fatalf("Failed to initialize prober: %v", err)
	}
	runner := monitor.NewRunner(cfg.Health, feedStore, prober, store, metricsCollector)

	if *once {
		if _, err := runner.Run(ctx); err != nil {
			log.Fatalf("Health run failed: %v", err)
		}
		return
	}

	// Start health-check loop (0 = external scheduler drives runs via POST /run)
	if cfg.Health.IntervalSeconds > 0 {
		go runner.Loop(ctx, time.Duration(cfg.Health.IntervalSeconds)*time.Second)
	} else {
		log.Info("Health loop disabled, runs are externally scheduled")
	}

	// Start relay server
	relayServer := relay.NewServer(cfg, feedStore, runner, metricsCollector)
	go func() {
		if err := relayServer.Start(); err != nil {
			log.Fatalf("Relay server failed: %v", err)
		}
	}()

	log.Infof("Service started successfully on %s", cfg.Relay.Addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := relayServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Relay server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}
