// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/repository"
	"atelier/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	auth           *middleware.Authenticator
	promMiddleware *fiberprometheus.FiberPrometheus
	notifier       *notifications.Notifier
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	postService       *service.PostService
	paymentService    *service.PaymentService
	moderationService *service.ModerationService
	voteService       *service.VoteService
	commentService    *service.CommentService
}

// NewServer connects to the database and Redis and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client leaves the cache and notifier disabled.
	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	store := repository.NewStore(db)
	fee := service.Fee{AmountCents: cfg.ArtworkFeeCents, Currency: cfg.ArtworkCurrency}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		auth:           middleware.NewAuthenticator(cfg),
		promMiddleware: middleware.InitMetrics("atelier-api"),
	}

	var publisher service.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		publisher = s.notifier
	}

	s.postService = service.NewPostService(store, publisher, fee, cfg.RisingWindow())
	s.paymentService = service.NewPaymentService(store, publisher, fee, cfg.PaymentConfirmTimeout())
	s.moderationService = service.NewModerationService(store, publisher)
	s.voteService = service.NewVoteService(store, publisher)
	s.commentService = service.NewCommentService(store, publisher)

	s.app = fiber.New(fiber.Config{
		AppName:      "Atelier API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)

	return s, nil
}

// App returns the configured Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Spans first so the trace ID reaches the logging context.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Payment-Signature",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	required := s.auth.Required()
	optional := s.auth.Optional()

	// Posts. Specific /:id/:resource routes are registered before the generic /:id.
	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", required, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/payment", s.ConfirmPayment)
	posts.Post("/:id/vote", required, middleware.RateLimit(
		s.redis, 60, time.Minute, "vote"), s.VotePost)
	posts.Delete("/:id/vote", required, s.RemoveVote)
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", required, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id/comments/:commentId", required, s.DeleteComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Delete("/:id", required, s.DeletePost)

	api.Post("/comments/:id/vote", required, middleware.RateLimit(
		s.redis, 60, time.Minute, "vote"), s.VoteComment)
	api.Delete("/comments/:id/vote", required, s.RemoveCommentVote)

	moderation := api.Group("/moderation", required, middleware.ModeratorRequired())
	moderation.Get("/queue", s.GetModerationQueue)
	moderation.Post("/:postId/decision", s.DecidePost)
	moderation.Get("/:postId/actions", s.GetModerationHistory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database answers. Redis only backs the
// cache and event fan-out, so its absence degrades but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port until the app is shut down. Domain
// events published by this or any other instance are logged as they arrive.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.notifier != nil {
		go func() {
			if err := s.notifier.StartPatternSubscriber(s.shutdownCtx, s.logEvent); err != nil {
				middleware.Logger.Warn("event subscriber stopped", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) logEvent(channel, payload string) {
	middleware.Logger.Debug("domain event",
		slog.String("channel", channel),
		slog.Int("bytes", len(payload)))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
	}
	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
