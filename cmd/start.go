package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"segment-sync/core/broker"
	"segment-sync/core/loader"
	"segment-sync/core/logger"
	"segment-sync/core/metrics"
	"segment-sync/core/middleware/auth"
	"segment-sync/core/middleware/rayid"
	"segment-sync/core/storage"
	"segment-sync/feature/changes"
	"segment-sync/feature/segments"
	"segment-sync/feature/snapshots"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the segment sync server",
	Long: `Starts the HTTP API, the periodic segment refresh and, when NATS is configured,
the change relay. Snapshot routes are served when object storage is configured.`,
	RunE: runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	logg := rt.logger
	zap.ReplaceGlobals(logg)

	// The catalog is optional: without it only the index and change queue routes are served.
	var db *gorm.DB
	if conn, err := rt.openDB(); err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
	} else {
		db = conn
		logg.Info("Connected to segment database")
	}

	var relay *changes.Relay
	conn, err := broker.Connect(rt.cfg.NATS)
	switch {
	case errors.Is(err, broker.ErrDisabled):
		logg.Info("Change relay disabled, no NATS url configured")
	case err != nil:
		logg.Warn("Optional NATS connection failed", zap.Error(err))
	default:
		defer conn.Close()
		relay = changes.NewRelay(rt.store, conn, rt.cfg.NATS, logg)
	}

	exporter, err := rt.exporter(context.Background())
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logg.Info("Snapshots disabled, no storage endpoint configured")
	case err != nil:
		logg.Warn("Optional snapshot storage failed", zap.Error(err))
		exporter = nil
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every later log line carries it.
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})
	app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey, Skip: []string{"/metrics", "/health"}}))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := rt.kv.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": db != nil, "relay": relay != nil, "snapshots": exporter != nil})
	})

	segFeature := segments.NewFeature(db, rt.engine, logg, rt.cfg.Segments)

	mgr := loader.NewManager()
	mgr.Register(segFeature)
	mgr.Register(changes.NewFeature(rt.store, relay, logg))
	mgr.Register(snapshots.NewFeature(exporter))
	if err := mgr.LoadAll(app); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if sched := segFeature.Scheduler(); sched != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}
	if relay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
		serveErr <- app.Listen(rt.cfg.Server.Addr())
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(time.Duration(rt.cfg.Server.ShutdownSeconds) * time.Second); err != nil {
		logg.Warn("Server shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	return nil
}
