package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tubebrief/browser"
	"tubebrief/cache"
	"tubebrief/captions"
	"tubebrief/config"
	"tubebrief/fetch"
	"tubebrief/handlers"
	"tubebrief/logger"
	"tubebrief/repository/sqlite"
	"tubebrief/services/summary"
	"tubebrief/services/transcript"
	"tubebrief/storage"
	"tubebrief/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logConfig, err := logger.Init(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := sqlite.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo, err := sqlite.NewRepository(db)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	client := fetch.NewClient(fetch.Config{
		RequestsPerSecond: cfg.Transcript.OutboundRPS,
		Burst:             cfg.Transcript.OutboundBurst,
	})

	validator := validation.NewValidator(cfg)

	resolvers := transcript.Resolvers{
		Player:    captions.NewPlayerResolver(client),
		TimedText: captions.NewTimedTextResolver(client),
		WatchPage: captions.NewWatchPageResolver(client),
	}

	// The on-page and background-tab paths need a live browser; without one
	// the orchestrator reports those strategies as failed.
	var (
		pages     transcript.PageChannel
		simulator transcript.Simulator
	)
	if cfg.Browser.Enabled {
		controller, err := browser.NewRodController(browser.RodConfig{
			Headless:   cfg.Browser.Headless,
			BrowserBin: cfg.Browser.Bin,
		})
		if err != nil {
			log.Fatalf("Failed to start browser: %v", err)
		}
		defer controller.Close()
		pages = browser.NewActivePageChannel(controller, controller)
		simulator = browser.NewSimulator(controller, controller)
	}

	var archiver transcript.Archiver
	if cfg.Archive.Enabled {
		archiveClient, err := storage.NewArchiveClient(storage.ArchiveConfig{
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to initialize archive client: %v", err)
		}
		archiver = archiveClient
	}

	store := cache.New(cfg.Transcript.CacheTTL, cfg.Transcript.CacheSize)

	transcriptService := transcript.NewService(
		store,
		resolvers,
		pages,
		simulator,
		archiver,
		validator,
		transcript.Config{},
	)

	summaryService := summary.NewService(repo, client, summary.Config{
		Endpoint: cfg.Summary.Endpoint,
		Models:   cfg.Summary.Models,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "tubebrief " + cfg.Version,
	})

	setupMiddleware(app, cfg, logConfig)

	transcriptHandler := handlers.NewTranscriptHandler(transcriptService, validator)
	summaryHandler := handlers.NewSummaryHandler(transcriptService, summaryService, validator)
	settingsHandler := handlers.NewSettingsHandler(repo)

	app.Post("/api/transcript", transcriptHandler.Acquire)
	app.Post("/api/summary", summaryHandler.Summarize)
	app.Put("/api/settings/keys", settingsHandler.SaveKeys)
	app.Get("/api/settings/keys", settingsHandler.Keys)
	app.Put("/api/settings/prompt", settingsHandler.SavePrompt)
	app.Get("/api/settings/prompt", settingsHandler.Prompt)
	app.Get("/health", handlers.HealthCheck)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serverAddr := ":" + cfg.ServerPort
		if cfg.Debug {
			log.Printf("Server starting on http://localhost%s", serverAddr)
		}
		if err := app.Listen(serverAddr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Expired entries are dropped lazily on lookup; the janitor keeps the
	// cache from holding dead entries between lookups.
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				store.Purge()
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, logConfig *fiberLogger.Config) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(*logConfig))
	}

	if cfg.Middleware.EnableCORS {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods: strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders: strings.Join(cfg.CORS.AllowedHeaders, ","),
			MaxAge:       cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded",
				})
			},
		}))
	}
}
