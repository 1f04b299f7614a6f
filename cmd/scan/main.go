// Command scan runs the catalog scanner standalone: one immediate pass
// over every configured media library root, then exits. It shares its
// config, catalog store, and event bus wiring with cmd/api so a scan
// of the same catalog the Subsonic API serves can be run from a cron
// job or by hand after editing the library on disk.
package main

import (
	"flag"
	"os"

	"lms/config"
	"lms/internal/catalog"
	"lms/internal/database"
	"lms/internal/events"
	applog "lms/pkg/logger"
	"lms/internal/scanner"
)

func main() {
	force := flag.Bool("force", false, "rescan every file regardless of mtime/size")
	flag.Parse()

	log := applog.New("scan")

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

	if err := svc.RequestImmediateScan(*force); err != nil {
		log.Er("scan failed", err)
		os.Exit(1)
	}

	status := svc.Status()
	if status.LastCompleteStats == nil {
		log.Info("scan finished with no stats recorded")
		return
	}
	log.Info("scan finished",
		"filesScanned", status.LastCompleteStats.FilesScanned,
		"added", status.LastCompleteStats.Added,
		"updated", status.LastCompleteStats.Updated,
		"removed", status.LastCompleteStats.Removed,
	)
}
