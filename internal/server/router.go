package server

import (
	"lms/config"
	"lms/internal/catalog"
	"lms/internal/events"
	"lms/internal/subsonic"

	"github.com/gofiber/fiber/v2"
)

// Router groups every route under /rest (the Subsonic convention), a
// top-level /health check, and the /ws/scan progress feed. auth is the
// same AuthConfig used to build endpoints (it is threaded through
// rather than rebuilt here so a configured LoginThrottle applies to
// every credential check, not just the user-management handlers); bus
// may be nil when no event bus is wired, which disables the feed.
func Router(app *fiber.App, cfg config.Config, store *catalog.Store, endpoints *subsonic.Endpoints, auth subsonic.AuthConfig, bus *events.EventBus) error {
	app.Get("/health", healthHandler(cfg))

	if bus != nil {
		registerScanEventsRoute(app, bus)
	}

	d := &dispatcher{
		store:     store,
		endpoints: endpoints,
		subsonicConfig: subsonic.Config{
			OldProtocolClients:          cfg.ApiSubsonicOldServerProtocolClientList(),
			OpenSubsonicDisabledClients: cfg.ApiOpenSubsonicDisabledClientList(),
			ServerVersion:               cfg.ApiReportedServerVersion,
			Auth:                        auth,
		},
	}

	rest := app.Group("/rest")
	rest.All("/:method", d.handle)

	return nil
}

func healthHandler(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": cfg.GeneralVersion,
			"service": "lms",
		})
	}
}
