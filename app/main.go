package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sche/vc-agents/app/api"
	"github.com/sche/vc-agents/app/cfg"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
	"github.com/sche/vc-agents/app/seeds"
	"github.com/sche/vc-agents/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting VC Agents server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		slog.Error("Failed to migrate database schema", "error", err)
		os.Exit(1)
	}

	seedFile, err := seeds.Load(appCfg.SeedsFile)
	if err != nil {
		slog.Error("Failed to load seed file", "path", appCfg.SeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Seed file loaded", "path", appCfg.SeedsFile,
		"organizations", len(seedFile.Organizations), "news_feeds", len(seedFile.NewsFeeds))

	orgRepo := database.NewOrgRepository(db)
	dealRepo := database.NewDealsRepository(db)
	peopleRepo := database.NewPeopleRepository(db)
	roleRepo := database.NewRolesRepository(db)
	evidenceRepo := database.NewEvidenceRepo(db)
	runRepo := database.NewRunsRepository(db)
	introRepo := database.NewIntrosRepository(db)

	resolver := resolve.NewResolver(orgRepo, dealRepo, peopleRepo, roleRepo)
	tracker := runs.NewTracker(runRepo)

	httpClient := &http.Client{Timeout: 60 * time.Second}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(orgRepo, peopleRepo, roleRepo, evidenceRepo,
		runRepo, introRepo, resolver, tracker, httpClient, seedFile.NewsFeeds)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(orgRepo, dealRepo, peopleRepo, runRepo, introRepo, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
