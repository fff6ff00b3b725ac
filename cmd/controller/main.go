package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sharminesan/tb-backend/domain/teleop"
	"github.com/sharminesan/tb-backend/pkg/api"
	"github.com/sharminesan/tb-backend/pkg/config"
	"github.com/sharminesan/tb-backend/pkg/hub"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/processing"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
	"github.com/sharminesan/tb-backend/pkg/transport"
	"github.com/sharminesan/tb-backend/services"
)

func main() {
	configPath := flag.String("config", "config/controller.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Motion controller starting (robot_id=%s, version=%s)", cfg.RobotID, cfg.Version)

	// Event hub: every outbound event fans out to the websocket clients.
	eventHub := hub.NewHub(logger)
	go eventHub.Run()

	sink := motion.SinkFunc(func(ev motion.Event) {
		if err := eventHub.BroadcastJSON(map[string]interface{}{
			"event": ev.Name,
			"data":  ev.Data,
		}); err != nil {
			logger.Warnf("Failed to broadcast %s event: %v", ev.Name, err)
		}
	})

	store := telemetry.NewStore(sink)

	// Backend selection is a one-time boot decision; probe failures land in
	// simulation mode, never in a fatal error.
	selector := transport.NewSelector(cfg, logger)
	backend, kind := selector.Select(store)
	usingSimulation := kind == transport.KindSimulation

	controller := motion.NewController(backend, true, usingSimulation, motion.Options{
		PublishRate:       time.Second / time.Duration(cfg.Control.PublishRateHz),
		StopBurstCount:    cfg.Control.StopBurstCount,
		StopBurstInterval: time.Duration(cfg.Control.StopBurstIntervalMs) * time.Millisecond,
		DefaultLinear:     cfg.Defaults.LinearSpeed,
		DefaultAngular:    cfg.Defaults.AngularSpeed,
		DefaultPause:      time.Duration(cfg.Defaults.PatternPause) * time.Millisecond,
	}, logger, sink)
	controller.SetTelemetry(store)

	// In bridge mode the telemetry feed replaces the simulated tickers.
	var director *processing.Director
	var receiver *transport.TelemetryReceiver
	if !usingSimulation && cfg.Bridge.TelemetryAddress != "" {
		registry := processing.NewRegistry(cfg.Telemetry)
		decoder := processing.NewDecoder(store, logger)
		director = processing.NewDirector(registry, cfg.Processing, decoder.Decode, logger)
		director.Start()

		receiver, err = transport.NewTelemetryReceiver(cfg.Bridge.TelemetryAddress, director, logger)
		if err != nil {
			logger.Errorf("Telemetry receiver unavailable, status will report no data: %v", err)
		} else {
			receiver.Start()
		}
	}

	configService := services.NewTeleopConfigService(cfg, *configPath, logger)

	app := fiber.New(fiber.Config{
		AppName:               "tb-backend",
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "tb-backend",
			"backend": backend.Kind(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	apiGroup := app.Group("/api")
	teleop.NewService(controller, store, logger).RegisterRoutes(apiGroup)
	api.NewConfigHandler(configService, logger).RegisterRoutes(apiGroup)
	if director != nil {
		apiGroup.Get("/processing/stats", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"pools":  director.Metrics(),
				"topics": director.TopicStats(),
			})
		})
	}
	api.NewWebSocketHandler(eventHub, controller, logger).RegisterRoutes(app)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		logger.Infof("HTTP server listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Infof("Received %s, shutting down", received)

	// Order matters: stop accepting input, halt the base, then tear down the
	// telemetry path and the event fan-out.
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warnf("HTTP shutdown did not complete cleanly: %v", err)
	}

	controller.Close()

	if receiver != nil {
		receiver.Stop()
	}
	if director != nil {
		director.Stop()
	}

	switch b := backend.(type) {
	case *transport.BridgeTransport:
		b.Close()
	case *transport.SimulatedTransport:
		b.Close()
	}

	eventHub.Stop()
	logger.Infof("Motion controller stopped")
}
