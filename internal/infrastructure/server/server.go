package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/Jason-purse/nextjs-blog-sub000/internal/api/http"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/api/middleware"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/api/ws"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/assets"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/installer"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/revalidate"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/config"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/logging"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/tracing"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/pagecache"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/registry"
)

// debouncedRevalidateTimeout bounds a debounced revalidation, which runs
// outside any request context
const debouncedRevalidateTimeout = 30 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	manager   *installer.Manager
	seeder    *installer.Seeder
	scheduler *revalidate.Scheduler
	debouncer *revalidate.Debouncer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires a server around an existing logger
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing blog plugin server",
		zap.String("port", cfg.Server.Port),
		zap.Bool("registry_configured", cfg.Registry.URL != ""),
		zap.String("content_root", cfg.Content.Root),
	)

	metrics := monitoring.NewMetrics()

	store, err := contentstore.NewFilesystem(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open content store: %w", err)
	}

	registryClient := registry.New(registry.Config{
		BaseURL:     cfg.Registry.URL,
		Token:       cfg.Registry.Token,
		SnapshotTTL: cfg.Registry.SnapshotTTL,
		RequestTTL:  cfg.Registry.RequestTTL,
		Timeout:     cfg.Registry.Timeout,
		Retries:     cfg.Registry.Retries,
		RPS:         cfg.Registry.RPS,
	}, logger.Component("registry"), metrics)
	if !registryClient.Configured() {
		logger.Warn("Plugin registry not configured; only cached plugins are available")
	}

	cache := assets.NewCache(store, registryClient, logger.Component("assets"), metrics)

	pages := pagecache.New(
		cfg.Revalidate.WebhookURL,
		cfg.Revalidate.WebhookSecret,
		cfg.Revalidate.PrewarmTimeout,
		logger.Component("pagecache"),
	)
	scheduler := revalidate.NewScheduler(pages, store, revalidate.Config{
		SiteURL:            cfg.Revalidate.SiteURL,
		ListingPaths:       cfg.Revalidate.ListingPaths,
		ContentPrefix:      cfg.Revalidate.ContentPrefix,
		PostsDir:           cfg.Content.PostsDir,
		PrewarmTimeout:     cfg.Revalidate.PrewarmTimeout,
		PrewarmConcurrency: cfg.Revalidate.PrewarmConcurrency,
	}, logger.Component("revalidate"), metrics)

	debouncer := revalidate.NewDebouncer(func() {
		ctx, cancel := context.WithTimeout(context.Background(), debouncedRevalidateTimeout)
		defer cancel()
		if err := scheduler.RevalidateNow(ctx); err != nil {
			logger.Warn("Debounced revalidation failed", zap.Error(err))
		}
	})

	manager := installer.NewManager(installer.Config{
		Store:        store,
		Registry:     registryClient,
		Assets:       cache,
		Revalidator:  scheduler,
		Debouncer:    debouncer,
		Logger:       logger.Component("installer"),
		Metrics:      metrics,
		DefaultTheme: cfg.Plugins.DefaultTheme,
	})
	proxy := assets.NewProxy(cache, registryClient, manager, logger.Component("proxy"), metrics)

	var seeder *installer.Seeder
	if cfg.Plugins.SeedFile != "" {
		seeder = installer.NewSeeder(manager, cfg.Plugins.SeedFile, logger.Component("seeder"))
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware())
	router.Use(tracing.AccessLog(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(manager, proxy, registryClient, logger.Component("api"))
	handlers.Register(router)

	wsHandler := ws.NewHandler(manager, cfg.Server.AllowedOrigins, logger.Component("ws"), metrics)
	router.GET("/api/admin/events", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		manager:   manager,
		seeder:    seeder,
		scheduler: scheduler,
		debouncer: debouncer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Router exposes the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Seed installs plugins named in the seed file, if one is configured
func (s *Server) Seed(ctx context.Context) {
	if s.seeder == nil {
		return
	}
	report, err := s.seeder.Seed(ctx)
	if err != nil {
		s.logger.Warn("Failed to seed plugins", zap.Error(err))
		return
	}
	s.logger.Info("Seeded plugins",
		zap.Int("installed", report.Installed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var shutdownErr error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
		}
	}

	if s.debouncer.Pending() {
		s.logger.Info("Dropping pending debounced revalidation")
	}
	s.debouncer.Stop()
	s.scheduler.Wait()

	// Sync logger before exit
	s.logger.Sync()

	return shutdownErr
}
