package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-reconciler/core/loader"
	"media-reconciler/core/logger"
	"media-reconciler/core/middleware/auth"
	"media-reconciler/core/middleware/rayid"
	"media-reconciler/feature/integrity"
	"media-reconciler/feature/media"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "media-reconciler/docs/swagger"
)

// @title Media Reconciler API
// @version 1.0
// @description Search media depicting an entity that is already used on other wikis.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the media search server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Configuration, logger and optional known-media database
		d, err := loadDeps()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		logg := d.log
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if !d.cfg.Server.IsValidPort() {
			logg.Fatal("Invalid server port", zap.String("port", d.cfg.Server.Port))
		}

		// 2. Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 3. Feature Loader
		mgr := loader.NewManager()
		timeout := time.Duration(d.cfg.Server.RequestTimeoutSeconds) * time.Second
		mgr.Register(media.NewFeature(d.service(nil), timeout))
		mgr.Register(integrity.NewFeature(d.integrity()))

		// 4. Middleware. RayID first so every log line carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			start := time.Now()
			err := c.Next()
			l.Info("Request handled",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("duration", time.Since(start)),
			)
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Public endpoints
		app.Get("/swagger/*", swagger.HandlerDefault)
		skip := []string{}
		if d.metrics != nil {
			app.Get(d.cfg.Metrics.Path, adaptor.HTTPHandler(d.metrics.Handler()))
			skip = append(skip, d.cfg.Metrics.Path)
		}

		app.Use(auth.New(auth.Config{ApiKey: d.cfg.Server.ApiKey, Skip: skip}))

		// 5. Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Serve
		go func() {
			logg.Info("Starting server",
				zap.String("port", d.cfg.Server.Port),
				zap.String("api_url", d.cfg.Media.APIURL),
				zap.Bool("known_media", d.db != nil),
			)
			if err := app.Listen(d.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.ShutdownWithTimeout(timeout)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
