package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/news-comb/app/api"
	"github.com/lysyi3m/news-comb/app/browser"
	"github.com/lysyi3m/news-comb/app/cfg"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/discovery"
	"github.com/lysyi3m/news-comb/app/enrich"
	"github.com/lysyi3m/news-comb/app/extract"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/pipeline"
	"github.com/lysyi3m/news-comb/app/scheduler"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/store"
	"github.com/lysyi3m/news-comb/app/tasks"
	"github.com/lysyi3m/news-comb/app/workpool"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting News Comb server", "version", appCfg.Version)

	configCache := site.NewConfigCache(appCfg.SitesDir)
	if err := configCache.Run(); err != nil {
		fatal("Failed to load site configurations", err)
	}
	slog.Info("Site configurations loaded", "dir", appCfg.SitesDir, "count", configCache.GetConfigCount())

	runRepo, closeDB := openRunHistory(appCfg.DatabasePath)
	defer closeDB()

	ctx := context.Background()

	model, err := enrich.NewVertexModel(ctx, appCfg.VertexProject, appCfg.VertexRegion, appCfg.VertexModel)
	if err != nil {
		fatal("Failed to create generative model client", err)
	}
	defer model.Close()

	httpRenderer := browser.NewHTTP(&http.Client{}, appCfg.UserAgent, appCfg.GetPageTimeout())

	var launcher browser.Launcher
	switch appCfg.BrowserMode {
	case "http":
		launcher = browser.HTTPLauncher(&http.Client{}, appCfg.UserAgent, appCfg.GetPageTimeout())
	default:
		launcher = browser.ChromeLauncher(browser.ChromeOptions{
			ExecPath:    appCfg.ChromePath,
			UserAgent:   appCfg.UserAgent,
			Headless:    true,
			PageTimeout: appCfg.GetPageTimeout(),
			RenderWait:  appCfg.GetRenderWait(),
		})
	}

	documentStore := store.New(store.Options{
		Retention:          appCfg.GetRetention(),
		DuplicateThreshold: appCfg.DuplicateThreshold,
	})

	opts := pipeline.Options{
		Launcher:  launcher,
		Sites:     configCache,
		Discovery: discovery.NewDiscoverer(httpRenderer, appCfg.GetDiscoveryPause(), workpool.Sleep),
		Extractor: extract.NewExtractor(configCache, appCfg.ExtractConcurrency, appCfg.GetExtractCooldown(), workpool.Sleep),
		Enricher: enrich.NewEnricher(model, enrich.Options{
			BatchSize:   appCfg.EnrichBatchSize,
			BatchPause:  appCfg.GetEnrichBatchPause(),
			MaxAttempts: appCfg.EnrichMaxAttempts,
		}),
		Fallback: enrich.NewFallback(),
		Store:    documentStore,
		Tracker:  fault.NewTracker(appCfg.ErrorRateThreshold),
		MaxURLs:  appCfg.MaxURLsPerRun,
	}
	var runs api.RunHistory
	if runRepo != nil {
		opts.Recorder = runRepo
		runs = runRepo
	}
	orchestrator := pipeline.NewOrchestrator(opts)

	hour, minute, err := cfg.ParseScheduleTime(appCfg.ScheduleTime)
	if err != nil {
		fatal("Invalid schedule time", err)
	}
	loc, err := time.LoadLocation(appCfg.ScheduleTimezone)
	if err != nil {
		fatal("Invalid schedule timezone", err)
	}

	dailyScheduler := scheduler.New(orchestrator, scheduler.Options{
		Hour:             hour,
		Minute:           minute,
		Location:         loc,
		PauseOnErrorRate: appCfg.PauseOnErrorRate,
	})
	dailyScheduler.Start()
	defer dailyScheduler.Stop()

	taskRunner := tasks.NewRunner(documentStore, appCfg.GetMaintenanceInterval(), appCfg.WorkerCount)
	taskRunner.Start()
	defer taskRunner.Stop()

	generator := feed.NewGenerator(appCfg.BaseUrl, appCfg.Version)
	handler := api.NewHandler(documentStore, orchestrator, dailyScheduler, taskRunner, documentStore, runs, configCache, generator)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	status := dailyScheduler.Status()
	slog.Info("News Comb server started", "next_run", status.NextRun)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	if orchestrator.EmergencyStop() {
		slog.Warn("Active pipeline run stopped for shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("News Comb server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// openRunHistory returns a nil repository when no database path is set.
func openRunHistory(path string) (*database.RunRepository, func()) {
	if path == "" {
		slog.Info("Run history disabled")
		return nil, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fatal("Failed to create database directory", err)
	}

	db, err := database.NewConnection(path)
	if err != nil {
		fatal("Failed to connect to database", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		fatal("Failed to run database migrations", err)
	}
	slog.Info("Database ready", "path", path, "schema_version", version, "dirty", dirty)

	return database.NewRunRepository(db), func() { db.Close() }
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
