// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "huellas/docs" // swagger docs
	"huellas/internal/cache"
	"huellas/internal/catalog"
	"huellas/internal/config"
	"huellas/internal/events"
	"huellas/internal/featureflags"
	"huellas/internal/geo"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/notifications"
	"huellas/internal/repository"
	"huellas/internal/service"
)

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *middleware.Authenticator
	users        repository.UserRepository
	vets         repository.VeterinarianRepository
	catalog      *catalog.Catalog
	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	uploads      *service.UploadService

	authService       *service.AuthService
	postService       *service.PostService
	moderationService *service.ModerationService
	dashboardService  *service.DashboardService
	profileService    *service.ProfileService
	locationService   *service.LocationService
}

// NewServer wires repositories and services on top of already-opened
// connections. rdb and publisher may be nil.
func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher *events.Publisher) (*Server, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.NewPublisher(nil)
	}

	store := cache.NewStore(rdb)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	suspensions := repository.NewSuspensionRepository(db)
	posts := repository.NewPosts(db, suspensions)
	users := repository.NewUserRepository(db)
	profiles := repository.NewProfileRepository(db)
	uploads := service.NewUploadService(cfg)
	auth := middleware.NewAuthenticator(cfg, rdb)

	var notifier *notifications.Notifier
	if rdb != nil {
		notifier = notifications.NewNotifier(rdb)
	}

	var provider geo.Provider
	if cfg.MapboxPublicToken != "" {
		provider = geo.NewMapboxClient(cfg.MapboxAPIURL, cfg.MapboxPublicToken, nil)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("huellas-api"),
		auth:           auth,
		users:          users,
		vets:           repository.NewVeterinarianRepository(db),
		catalog:        cat,
		featureFlags:   flags,
		notifier:       notifier,
		uploads:        uploads,
	}

	s.authService = service.NewAuthService(users, profiles, auth, cfg.SecretBcryptCost)
	s.postService = service.NewPostService(
		posts,
		repository.NewHighlightRepository(db),
		uploads,
		flags,
		store,
		publisher,
		postConfigFrom(cfg),
	)
	s.moderationService = service.NewModerationService(
		posts,
		repository.NewReportRepository(db),
		suspensions,
		notifier,
		publisher,
		store,
	)
	s.dashboardService = service.NewDashboardService(posts)
	s.profileService = service.NewProfileService(profiles, users, uploads, cat, store)
	s.locationService = service.NewLocationService(geo.NewService(provider, cat, store), profiles, flags)

	return s, nil
}

func postConfigFrom(cfg *config.Config) service.PostConfig {
	pc := service.DefaultPostConfig()
	if cfg.LostPostTTLDays > 0 {
		pc.LostTTL = time.Duration(cfg.LostPostTTLDays) * 24 * time.Hour
	}
	if cfg.ReportedPostTTLDays > 0 {
		pc.ReportedTTL = time.Duration(cfg.ReportedPostTTLDays) * 24 * time.Hour
	}
	if cfg.ListingPageSize > 0 {
		pc.PageSize = cfg.ListingPageSize
	}
	if cfg.ListingCacheSeconds > 0 {
		pc.CacheTTL = time.Duration(cfg.ListingCacheSeconds) * time.Second
	}
	if cfg.SecretBcryptCost > 0 {
		pc.BcryptCost = cfg.SecretBcryptCost
	}
	return pc
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// uploaded images are embedded by the web client on another origin
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on 429 responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultAllowedOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Owner-Secret, X-Client-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if strings.HasPrefix(s.config.UploadPublicURL, "/") {
		app.Static(s.config.UploadPublicURL, s.uploads.Dir(), fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Huellas Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	optional := s.auth.Optional()
	required := s.auth.Required()
	// each attempt runs a bcrypt comparison against a six-digit secret
	ownerProofLimit := middleware.RateLimit(s.redis, 10, 15*time.Minute, "owner_proof")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", required, s.Logout)

	api.Get("/catalog", s.GetCatalog)
	api.Get("/catalog/breeds", s.GetBreeds)
	api.Get("/catalog/colors", s.GetColors)
	api.Get("/catalog/categories", s.GetCategories)
	api.Get("/catalog/report-reasons", s.GetReportReasons)
	api.Get("/catalog/countries", s.GetCountries)
	api.Get("/config/map-token", s.GetMapToken)

	// Specific /:kind/:id/:action routes before the generic /:kind/:id
	posts := api.Group("/posts")
	posts.Get("/:kind", optional, s.ListPosts)
	posts.Post("/:kind", optional, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:kind/:id/contact", required, s.GetPostContact)
	posts.Post("/:kind/:id/status", optional, ownerProofLimit, s.ChangePostStatus)
	posts.Post("/:kind/:id/report", optional, middleware.RateLimit(s.redis, 5, time.Hour, "report_post"), s.ReportPost)
	posts.Post("/:kind/:id/highlight", required, s.ToggleHighlight)
	posts.Get("/:kind/:id", optional, s.GetPost)
	posts.Delete("/:kind/:id", optional, ownerProofLimit, s.DeletePost)

	me := api.Group("/me", required)
	me.Get("/highlights", s.GetMyHighlights)
	me.Get("/dashboard", s.GetMyDashboard)
	me.Get("/profile", s.GetMyProfile)
	me.Put("/profile", s.UpdateMyProfile)
	me.Post("/profile/avatar", s.UploadMyAvatar)
	me.Delete("/", s.DeleteMyAccount)

	api.Post("/uploads", optional, middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.UploadImages)

	vets := api.Group("/veterinarians", optional)
	vets.Get("/", s.ListVeterinarians)
	vets.Get("/:id", s.GetVeterinarian)

	geocode := api.Group("/geocode", optional, middleware.RateLimit(s.redis, 60, time.Minute, "geocode"))
	geocode.Get("/", s.SearchLocation)
	geocode.Get("/reverse", s.ReverseGeocode)
	geocode.Get("/current", s.CurrentLocation)
	geocode.Get("/region", s.RegionBounds)

	admin := api.Group("/admin", required, s.AdminRequired())
	admin.Get("/reports", s.GetAdminReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)
	admin.Post("/posts/:kind/:id/suspend", s.SuspendPost)
	admin.Get("/suspensions", s.GetSuspensions)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client is reported but does not fail the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Huellas",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after the authenticator so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.UserID(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		user, err := s.users.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			return respondAppError(c, err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Huellas API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB*maxUploadFiles + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server and the admin event subscriber.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil {
		go func() {
			err := s.notifier.StartAdminSubscriber(s.shutdownCtx, func(ev notifications.AdminEvent) {
				middleware.Logger.Info("Moderation event",
					slog.String("type", ev.Type),
					slog.String("post_type", string(ev.PostType)),
					slog.String("post_id", ev.PostID),
				)
			})
			if err != nil && ctx.Err() == nil {
				middleware.Logger.Error("Admin subscriber stopped", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	err := s.app.Listen(":" + s.config.Port)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and cancels background work. Connections
// are closed by the owner of the runtime.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
			return err
		}
	}
	middleware.Logger.Info("Server shutdown complete")
	return nil
}
