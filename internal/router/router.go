package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/anonto42/socialape/backend/internal/blob"
	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/handlers"
	"github.com/anonto42/socialape/backend/internal/identity"
	"github.com/anonto42/socialape/backend/internal/metrics"
	"github.com/anonto42/socialape/backend/internal/middleware"
	"github.com/anonto42/socialape/backend/internal/repositories"
	"github.com/anonto42/socialape/backend/pkg/logging"
	"github.com/anonto42/socialape/backend/validators"
)

// Dependencies are the collaborators injected into every handler
type Dependencies struct {
	Store    docstore.Store
	Identity identity.Provider
	Uploader blob.Uploader
	Cache    cache.ScreamCache
	// Triggers handles changes pushed to /events/firestore
	Triggers    events.Handler
	EventsToken string
	// UploadDir is served under /uploads when set
	UploadDir string
	Logger    *slog.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.Use(logging.RequestLogger(logger))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(metrics.Middleware())

	e.HTTPErrorHandler = handlers.HTTPErrorHandler(logger)
	e.Validator = validators.NewValidator()
	logger.Info("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger
	screamCache := deps.Cache
	if screamCache == nil {
		screamCache = cache.NopScreamCache{}
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	if deps.UploadDir != "" {
		e.Static(blob.UploadsPath, deps.UploadDir)
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewDocUserRepository(deps.Store)
	screamRepo := repositories.NewDocScreamRepository(deps.Store)
	commentRepo := repositories.NewDocCommentRepository(deps.Store)
	likeRepo := repositories.NewDocLikeRepository(deps.Store)
	notificationRepo := repositories.NewDocNotificationRepository(deps.Store)

	api := e.Group("")
	auth := middleware.Auth(deps.Identity, userRepo)

	authHandler := handlers.NewAuthHandler(userRepo, deps.Identity, deps.Uploader)
	authHandler.RegisterAuthRoutes(api)

	userHandler := handlers.NewUserHandler(userRepo, screamRepo, likeRepo, notificationRepo, deps.Uploader, screamCache, logger)
	userHandler.RegisterUserRoutes(api, auth)

	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api, auth)

	screamHandler := handlers.NewScreamHandler(screamRepo, commentRepo, screamCache, logger)
	screamHandler.RegisterScreamRoutes(api, auth)

	commentHandler := handlers.NewCommentHandler(commentRepo, screamRepo, screamCache, logger)
	commentHandler.RegisterCommentRoutes(api, auth)

	likeHandler := handlers.NewLikeHandler(likeRepo, screamRepo, screamCache, logger)
	likeHandler.RegisterLikeRoutes(api, auth)

	if deps.Triggers != nil {
		eventsHandler := handlers.NewEventsHandler(deps.Triggers, deps.EventsToken, logger)
		eventsHandler.RegisterEventRoutes(api)
	}

	logger.Info("all routes configured")
}
