// Package server wires the Fiber HTTP app and registers the Subsonic
// REST surface: one route handles every /rest/:method request, backed
// by internal/subsonic's endpoint table.
package server

import (
	"fmt"
	"time"

	"lms/config"
	"lms/internal/catalog"
	"lms/internal/events"
	"lms/internal/subsonic"
	applog "lms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/helmet/v2"
)

// AppServer owns the Fiber app for one running process.
type AppServer struct {
	FiberApp *fiber.App
	log      applog.Logger
}

// New builds the Fiber app, installs the middleware stack, and
// registers the Subsonic dispatch route plus the scan-progress
// websocket feed. store and endpoints are the catalog session pool and
// the endpoint table built by subsonic.NewEndpoints respectively; auth
// is the same AuthConfig endpoints was built with; bus feeds /ws/scan
// and may be nil.
func New(cfg config.Config, store *catalog.Store, endpoints *subsonic.Endpoints, auth subsonic.AuthConfig, bus *events.EventBus) (*AppServer, error) {
	log := applog.New("server").Function("New")
	log.Info("initializing server")

	fiberCfg := fiber.Config{
		ServerHeader:             fmt.Sprintf("lms/%s", cfg.GeneralVersion),
		AppName:                  "lms",
		BodyLimit:                10 * 1024 * 1024,
		ReadBufferSize:           16384,
		WriteBufferSize:          16384,
		StreamRequestBody:        false,
		EnableSplittingOnParsers: true,
		EnableTrustedProxyCheck:  true,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		IdleTimeout:              120 * time.Second,
		DisableStartupMessage:    true,
		EnablePrintRoutes:        false,
	}

	if cfg.Environment == "development" {
		log.Info("enabling development mode")
		fiberCfg.DisableStartupMessage = false
		fiberCfg.EnablePrintRoutes = true
	}

	app := fiber.New(fiberCfg)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsAllowOrigins,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Response-Type",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	app.Use(fiberLogs.New())
	app.Use(compress.New())

	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
		ContentSecurityPolicy:     "",
	}))

	server := &AppServer{FiberApp: app, log: log}

	if err := Router(app, cfg, store, endpoints, auth, bus); err != nil {
		return nil, log.Err("failed to register routes", err)
	}

	return server, nil
}

// Listen starts accepting connections on port. It blocks until the
// app is shut down.
func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")
	if port <= 0 {
		return log.Error("invalid port", "port", port)
	}
	log.Info("starting server", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully drains in-flight requests.
func (s *AppServer) Shutdown() error {
	return s.FiberApp.ShutdownWithTimeout(10 * time.Second)
}
