package server

import (
	"context"
	"fmt"
	"time"

	"dojo/internal/cache"
	"dojo/internal/config"
	"dojo/internal/database"
	"dojo/internal/middleware"
	"dojo/internal/models"
	"dojo/internal/repository"
	"dojo/internal/service"
	"dojo/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	cache  *cache.Cache
	store  storage.Store
	prom   *fiberprometheus.FiberPrometheus

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	mediaRepo    repository.MediaRepository
	tagRepo      repository.TagRepository
	categoryRepo repository.CategoryRepository
	notifRepo    repository.NotificationRepository

	authService     *service.AuthService
	userService     *service.UserService
	postService     *service.PostService
	commentService  *service.CommentService
	tagService      *service.TagService
	categoryService *service.CategoryService
	mediaService    *service.MediaService
	notifService    *service.NotificationService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	c := cache.New(cfg.RedisURL)

	store, err := storage.New(cfg.StorageBackend, cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, c, store), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB and Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, c *cache.Cache, store storage.Store) *Server {
	s := &Server{
		config:       cfg,
		db:           db,
		cache:        c,
		store:        store,
		prom:         fiberprometheus.New("dojo-api"),
		userRepo:     repository.NewUserRepository(db),
		postRepo:     repository.NewPostRepository(db),
		commentRepo:  repository.NewCommentRepository(db),
		mediaRepo:    repository.NewMediaRepository(db),
		tagRepo:      repository.NewTagRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		notifRepo:    repository.NewNotificationRepository(db),
	}

	s.authService = service.NewAuthService(s.userRepo)
	s.userService = service.NewUserService(s.userRepo)
	s.notifService = service.NewNotificationService(s.notifRepo, s.userRepo, c, cfg.NotificationCap)
	s.postService = service.NewPostService(s.postRepo, s.categoryRepo, s.tagRepo, s.mediaRepo,
		s.notifService, store, c)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.notifService, c)
	s.tagService = service.NewTagService(s.tagRepo, s.postRepo, c)
	s.categoryService = service.NewCategoryService(s.categoryRepo)
	s.mediaService = service.NewMediaService(s.mediaRepo, s.postRepo, s.userRepo, store, cfg, c)

	return s
}

// DB exposes the underlying database handle for bootstrap tasks such as
// seeding.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Shutdown releases server-held resources after the HTTP listener stops.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cache.Enabled() {
		if err := s.cache.Client().Close(); err != nil {
			return err
		}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	app.Use(s.prom.Middleware)

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	s.prom.RegisterAt(app, "/metrics")

	redisClient := s.cache.Client()

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(
		redisClient, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Post("/change-password", s.AuthRequired(), s.ChangePassword)

	// Public post routes (browse/search). Detail and comment creation carry
	// optional auth: members are attributed, guests pass through.
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPublishedPosts)
	publicPosts.Get("/search", middleware.RateLimit(
		redisClient, 10, time.Minute, "search"), s.OptionalAuth(), s.SearchPosts)
	// Named routes must precede the generic /:id matcher.
	publicPosts.Get("/mine", s.AuthRequired(), s.GetMyPosts)
	publicPosts.Get("/pending", s.AuthRequired(), s.AdminRequired(), s.GetPendingPosts)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Post("/:id/comments", middleware.RateLimit(
		redisClient, 5, time.Minute, "create_comment"), s.OptionalAuth(), s.CreateComment)
	publicPosts.Get("/:id/media", s.GetPostMedia)
	publicPosts.Get("/:id/tags", s.GetPostTags)
	publicPosts.Get("/:id", s.OptionalAuth(), s.GetPost)

	// Public taxonomy routes
	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Get("/:slug/posts", s.GetPostsByCategory)
	categories.Get("/:slug", s.GetCategory)

	tags := api.Group("/tags")
	tags.Get("/", s.GetTags)
	tags.Get("/:slug/posts", s.GetPostsByTag)
	tags.Get("/:slug", s.GetTag)

	// Media file serving is public: published posts embed these URLs.
	api.Get("/media/:id/file", s.ServeMediaFile)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Post authoring and workflow
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		redisClient, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/submit", s.SubmitPost)
	posts.Post("/:id/approve", s.AdminRequired(), s.ApprovePost)
	posts.Post("/:id/reject", s.AdminRequired(), s.RejectPost)
	posts.Post("/:id/images", s.UploadPostImage)
	posts.Post("/:id/videos", s.AddPostVideo)
	posts.Post("/:id/tags/:tagId", s.AttachTag)
	posts.Delete("/:id/tags/:tagId", s.DetachTag)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Comment moderation
	protected.Get("/comments", s.AdminRequired(), s.GetAllComments)
	protected.Delete("/comments/:id", s.DeleteComment)

	// Media removal
	protected.Delete("/media/:id", s.DeleteMedia)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Post("/me/avatar", s.UploadMyAvatar)
	users.Get("/", s.AdminRequired(), s.GetUsers)
	users.Post("/", s.AdminRequired(), s.CreateUser)
	users.Post("/promote-belt", s.AdminRequired(), s.BulkPromoteBelt)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Post("/:id/toggle-status", s.AdminRequired(), s.ToggleUserStatus)
	users.Post("/:id/promote-belt", s.AdminRequired(), s.PromoteUserBelt)
	users.Post("/:id/avatar", s.AdminRequired(), s.UploadUserAvatar)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)
	users.Delete("/:id", s.AdminRequired(), s.DeleteUser)

	// Taxonomy administration
	adminCategories := protected.Group("/categories", s.AdminRequired())
	adminCategories.Post("/", s.CreateCategory)
	adminCategories.Put("/:id", s.UpdateCategory)
	adminCategories.Delete("/:id", s.DeleteCategory)

	adminTags := protected.Group("/tags", s.AdminRequired())
	adminTags.Post("/", s.CreateTag)
	adminTags.Delete("/:id", s.DeleteTag)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Get("/unread-count", s.GetUnreadCount)
	notifications.Post("/read-all", s.MarkAllNotificationsRead)
	notifications.Post("/:id/read", s.MarkNotificationRead)
}

// AuthRequired returns the authentication middleware bound to the
// configured signing secret.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.config.JWTSecret)
}

// OptionalAuth returns the optional authentication middleware.
func (s *Server) OptionalAuth() fiber.Handler {
	return middleware.OptionalAuth(s.config.JWTSecret)
}

// AdminRequired gates a route on the admin role. It must run behind
// AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := s.actor(c)
		if err != nil {
			return nil
		}
		if !actor.CapabilitiesFor(0).CanModerate {
			return models.RespondWithError(c,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// ReadinessCheck reports whether the server can take traffic. The cache is
// optional, so only the database gates readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	cacheStatus := "unavailable"
	if s.cache.Enabled() {
		cacheStatus = "healthy"
		if err := s.cache.Client().Ping(ctx).Err(); err != nil {
			cacheStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": dbStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"cache":    cacheStatus,
		},
		"time": time.Now(),
	})
}
