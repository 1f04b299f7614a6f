// Command api is the main LMS server binary: it loads config, opens
// the catalog store, dials the shared valkey cache layer for the event
// bus and login throttling, schedules the background scanner,
// registers the Subsonic REST surface, and serves HTTP until signaled
// to stop.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"lms/config"
	"lms/internal/catalog"
	"lms/internal/database"
	"lms/internal/events"
	applog "lms/pkg/logger"
	"lms/internal/scanner"
	"lms/internal/server"
	"lms/internal/streaming"
	"lms/internal/subsonic"
)

func main() {
	log := applog.New("api")

	cfg, err := config.InitConfig()
	if err != nil {
		log.Er("failed to load config", err)
		os.Exit(1)
	}

	dbPath := cfg.WorkingDir + "/catalog.db"
	store, err := catalog.Open(catalog.Options{
		Path:            dbPath,
		SessionPoolSize: cfg.SessionPoolSize,
		Debug:           cfg.Environment != "production",
	})
	if err != nil {
		log.Er("failed to open catalog store", err)
		os.Exit(1)
	}
	defer store.Close()

	cache, err := database.New(cfg)
	if err != nil {
		log.Er("failed to initialize cache layer", err)
		os.Exit(1)
	}
	defer cache.Close()

	bus := events.New(cache.Cache.Events, cfg)

	svc := scanner.NewService(store, cfg, log, bus, nil)
	if err := svc.RequestReload(); err != nil {
		log.Er("failed to schedule recurring scan from ScanSettings", err)
	}
	defer svc.Stop()

	auth := subsonic.AuthConfig{
		Pepper:              cfg.SecurityPepper,
		SupportPasswordAuth: cfg.ApiSubsonicSupportUserPasswordAuth,
		Throttle:            database.NewLoginThrottle(cache.Cache),
	}
	endpoints := subsonic.NewEndpoints(svc, auth, streaming.FfmpegTranscoder{})

	srv, err := server.New(cfg, store, endpoints, auth, bus)
	if err != nil {
		log.Er("failed to build server", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Listen(cfg.ServerPort); err != nil {
			log.Er("server stopped", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Er("error during shutdown", err)
	}
}
