// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "galaxydistance/docs" // swagger docs
	"galaxydistance/internal/authz"
	"galaxydistance/internal/config"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/repository"
	"galaxydistance/internal/service"
	"galaxydistance/internal/session"
	"galaxydistance/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	maxBodyBytes     = 12 * 1024 * 1024
	loginRateLimit   = 10
	loginWindow      = 5 * time.Minute
	registerLimit    = 3
	registerWindow   = 10 * time.Minute
	readinessTimeout = 5 * time.Second
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store
	userService    *service.UserService
	galaxyService  *service.GalaxyService
	requestService *service.RequestService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// images may be nil when object storage is not configured.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageStore) (*Server, error) {
	if db == nil || redisClient == nil {
		return nil, errors.New("server requires a database and a redis client")
	}

	userRepo := repository.NewUserRepository(db)
	galaxyRepo := repository.NewGalaxyRepository(db)
	requestRepo := repository.NewGalaxyRequestRepository(db)

	viewed := session.NewViewedTracker(redisClient, cfg.ViewedMax, cfg.ViewedPageSize, cfg.GuestSessionTTL)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("galaxydistance-api"),
		sessions:       session.NewStore(redisClient, cfg.SessionTTL, cfg.GuestSessionTTL),
		userService:    service.NewUserService(userRepo),
		galaxyService:  service.NewGalaxyService(galaxyRepo, images, viewed, middleware.Logger),
		requestService: service.NewRequestService(requestRepo, galaxyRepo, middleware.Logger),
	}, nil
}

// NewApp builds the fiber application with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Galaxy Distance API",
		BodyLimit: maxBodyBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(middleware.Sessions(middleware.SessionConfig{
		Store:        s.sessions,
		Users:        s.userService,
		CookieSecure: s.config.CookieSecure,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	users := api.Group("/users")
	users.Post("/register", s.Require(authz.Guest),
		middleware.RateLimit(s.redis, s.config.Env, registerLimit, registerWindow, "register"), s.Register)
	users.Post("/login", s.Require(authz.Guest),
		middleware.RateLimit(s.redis, s.config.Env, loginRateLimit, loginWindow, "login"), s.Login)
	users.Post("/logout", s.Require(authz.Authenticated), s.Logout)
	users.Get("/profile", s.Require(authz.Authenticated), s.GetProfile)
	users.Put("/profile", s.Require(authz.Authenticated), s.UpdateProfile)

	moderator := s.Require(authz.Moderator)
	galaxies := api.Group("/galaxies")
	galaxies.Get("/", s.ListGalaxies)
	galaxies.Post("/", moderator, s.CreateGalaxy)
	galaxies.Post("/:id/image", moderator, s.UploadGalaxyImage)
	galaxies.Post("/:id/draft", s.Require(authz.RegularUser, authz.Moderator), s.AddGalaxyToDraft)
	galaxies.Get("/:id", s.GetGalaxy)
	galaxies.Put("/:id", moderator, s.UpdateGalaxy)
	galaxies.Delete("/:id", moderator, s.DeactivateGalaxy)

	viewed := api.Group("/viewed")
	viewed.Get("/", s.GetRecentlyViewed)
	viewed.Post("/:id", s.RecordView)

	requests := api.Group("/galaxy-requests", s.Require(authz.Authenticated))
	requests.Get("/cart", s.GetCart)
	requests.Get("/", s.ListRequests)

	// Draft routes before the generic /:id routes.
	creator := s.Require(authz.RegularUser)
	editor := s.Require(authz.RegularUser, authz.Moderator)
	requests.Put("/draft/submit", creator, s.SubmitDraft)
	requests.Put("/draft/galaxies/:galaxyId", editor, s.SetDraftMagnitude)
	requests.Delete("/draft/galaxies/:galaxyId", editor, s.RemoveDraftGalaxy)
	requests.Put("/draft", creator, s.UpdateDraft)
	requests.Delete("/draft", creator, s.DeleteDraft)

	requests.Put("/:id/resolve", moderator, s.ResolveRequest)
	requests.Get("/:id", s.GetRequest)
}

// Require returns middleware that lets the request through when any of preds
// holds for the resolved caller.
func (s *Server) Require(preds ...authz.Predicate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authz.Check(middleware.IdentityFrom(c), preds...); err != nil {
			return models.Respond(c, err)
		}
		return c.Next()
	}
}

// LivenessCheck reports that the process is up
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the database and redis answer
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if rerr := s.redis.Close(); rerr != nil {
		middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
