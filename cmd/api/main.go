package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/config"
	"github.com/dafibh/kredo/kredo-backend/internal/handler"
	"github.com/dafibh/kredo/kredo-backend/internal/metrics"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/dafibh/kredo/kredo-backend/internal/repository/postgres"
	"github.com/dafibh/kredo/kredo-backend/internal/repository/redislock"
	"github.com/dafibh/kredo/kredo-backend/internal/repository/storage"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/dafibh/kredo/kredo-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(os.Args[2:]); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Connect to database
	pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	accrualRunRepo := postgres.NewAccrualRunRepository(pool)
	txManager := postgres.NewTxManager(pool, cfg.TxMaxAttempts)

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	// WebSocket hub; services publish loan events through it
	hub := websocket.NewHub()

	// Initialize services
	loanService := service.NewLoanService(txManager, loanRepo, paymentRepo, userRepo)
	loanService.SetEventPublisher(hub)
	loanService.SetMetrics(ledgerMetrics)
	dashboardService := service.NewDashboardService(loanRepo, userRepo)

	scheduler := service.NewAccrualScheduler(
		loanService,
		accrualRunRepo,
		log.Logger,
		service.AccrualSchedulerConfig{RunAt: cfg.Accrual.RunAt},
	)
	scheduler.SetMetrics(ledgerMetrics)

	if cfg.RedisURL != "" {
		redisClient, err := redislock.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure redis")
		}
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		scheduler.SetRunLock(redislock.New(redisClient, redislock.DefaultKey, cfg.RunLockTTL))
		log.Info().Dur("ttl", cfg.RunLockTTL).Msg("Distributed accrual lock enabled")
	}

	if cfg.S3.Bucket != "" {
		reportStore, err := storage.NewS3ReportStore(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 report store")
		}
		scheduler.SetArchiver(reportStore)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Accrual run archive enabled")
	}

	// Initialize auth
	jwtValidator, err := middleware.NewJWTValidator(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create JWT validator")
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtValidator)

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimit.PerMinute, cfg.RateLimit.WritePerMinute, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	// Initialize handlers
	loanHandler := handler.NewLoanHandler(loanService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	accrualHandler := handler.NewAccrualHandler(scheduler)
	wsHandler := handler.NewWebSocketHandler(hub, websocket.NewJWTValidator(jwtValidator), cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		// Swagger UI needs inline scripts
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/swagger")
		},
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, loanHandler, dashboardHandler, accrualHandler, wsHandler)
	handler.RegisterDocsRoutes(e, handler.NewSwaggerHandler(handler.Server{
		URL:         "http://localhost:" + cfg.Port + "/api/v1",
		Description: "Local Development",
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Accrual.Enabled {
		scheduler.Start(ctx)
	} else {
		log.Info().Msg("Daily accrual disabled")
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// handleMigrationCommand runs `migrate up|down [steps]|status`
func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: kredo migrate [up|down|status] [steps]")
	}

	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		return postgres.MigrateUp(databaseURL)
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid steps %q: %w", args[1], err)
			}
		}
		return postgres.MigrateDown(databaseURL, steps)
	case "status":
		return postgres.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
