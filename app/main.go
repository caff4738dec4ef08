package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/vod-comb/app/api"
	"github.com/lysyi3m/vod-comb/app/auth"
	"github.com/lysyi3m/vod-comb/app/cfg"
	"github.com/lysyi3m/vod-comb/app/database"
	"github.com/lysyi3m/vod-comb/app/feed"
	"github.com/lysyi3m/vod-comb/app/metrics"
	"github.com/lysyi3m/vod-comb/app/poller"
	"github.com/lysyi3m/vod-comb/app/recorder"
	"github.com/lysyi3m/vod-comb/app/tasks"
	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vodapi"
	"github.com/lysyi3m/vod-comb/app/watchlist"
)

// watchlistSource is both the poller's provider and the API's snapshot.
type watchlistSource interface {
	watchlist.Provider
	api.WatchlistSnapshot
}

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	if appCfg == nil {
		return 0
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting VOD Comb",
		"version", appCfg.Version,
		"watchlist_source", appCfg.WatchlistSource,
		"storage", appCfg.Storage,
		"poll_interval", appCfg.GetPollInterval().String(),
		"failure_limit", appCfg.FailureLimit)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	httpClient := &http.Client{Timeout: appCfg.GetRequestTimeout()}

	twitchClient := twitch.NewClient(httpClient, twitch.Options{
		ClientID:          appCfg.ClientID,
		ClientSecret:      appCfg.ClientSecret,
		OAuthURL:          appCfg.OAuthURL,
		HelixURL:          appCfg.HelixURL,
		UserAgent:         appCfg.UserAgent,
		RequestsPerSecond: appCfg.HelixRPS,
		Timeout:           appCfg.GetRequestTimeout(),
	})
	tokenManager := auth.NewManager(twitchClient, auth.NewFileTokenStore(appCfg.TokenFile), m)

	var vodAPI *vodapi.Client
	if appCfg.APIBaseURL != "" {
		vodAPI = vodapi.NewClient(httpClient, appCfg.APIBaseURL, appCfg.UserAgent, appCfg.GetRequestTimeout())
	}

	var provider watchlistSource
	switch appCfg.WatchlistSource {
	case cfg.SourceRemote:
		provider = watchlist.NewRemoteProvider(vodAPI)
	default:
		provider = watchlist.NewFileProvider(appCfg.WatchlistFile)
	}

	var (
		rec     recorder.Recorder
		archive recorder.Archive
	)
	switch appCfg.Storage {
	case cfg.StorageRemote:
		rec = recorder.NewRemoteRecorder(vodAPI)
	case cfg.StorageSQLite:
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
			return 1
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			return 1
		}
		slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

		dbRecorder := recorder.NewDatabaseRecorder(database.NewVodRepository(db))
		rec, archive = dbRecorder, dbRecorder
	default:
		fileRecorder := recorder.NewFileRecorder(appCfg.VodsDir)
		rec, archive = fileRecorder, fileRecorder
	}

	vodPoller := poller.New(tokenManager, provider, twitchClient, rec, m, appCfg.FailureLimit)

	scheduler := tasks.NewScheduler(vodPoller, appCfg.GetPollInterval())
	scheduler.Start()
	defer scheduler.Stop()

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)
	if appCfg.Port != "" {
		handler := api.NewHandler(archive, feed.NewGenerator(appCfg.BaseURL, appCfg.Version),
			vodPoller, tokenManager, provider, scheduler,
			api.ServiceInfo{
				Version:         appCfg.Version,
				WatchlistSource: appCfg.WatchlistSource,
				Storage:         appCfg.Storage,
			})
		router := api.NewServer(handler, appCfg.APIAccessKey, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		httpServer = &http.Server{
			Addr:         ":" + appCfg.Port,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	} else {
		slog.Info("HTTP server disabled (PORT not set)")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	case err := <-scheduler.Fatal():
		slog.Error("Too many consecutive failed lookups, exiting", "failures", vodPoller.Failures(), "error", err)
		exitCode = 1
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	slog.Info("VOD Comb shutdown complete")
	return exitCode
}
