// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seniority/internal/cache"
	"seniority/internal/config"
	"seniority/internal/database"
	"seniority/internal/game"
	"seniority/internal/middleware"
	"seniority/internal/models"
	"seniority/internal/moderation"
	"seniority/internal/notifications"
	"seniority/internal/observability"
	"seniority/internal/repository"
	"seniority/internal/service"
	"seniority/internal/sweeper"

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

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	gameHub        *notifications.GameHub
	hubs           []wireableHub
	sweeper        *sweeper.Sweeper
	feedService    *service.FeedService
	postService    *service.PostService
	userService    *service.UserService
	friendService  *service.FriendService
	gameService    *service.GameService
	notifService   *service.NotificationService
	groupService   *service.GroupService
}

// NewServer connects to the database and Redis named in cfg and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client runs the app without cache or pub/sub.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Without Redis, events are delivered to this process's sockets only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	gameRepo := repository.NewGameRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("seniority-api"),
		hub:            notifications.NewHub(),
	}

	var (
		publisher service.Publisher
		local     *notifications.LocalPublisher
	)
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		publisher = s.notifier
	} else {
		local = &notifications.LocalPublisher{Users: s.hub}
		publisher = local
	}
	// User notifications land in the inbox before the live push.
	publisher = service.NewInboxPublisher(publisher, notificationRepo)

	censor := moderation.NewCensor(moderation.DefaultWords)
	if words := moderation.ParseWords(cfg.CensorWords); len(words) > 0 {
		censor = moderation.NewCensor(words)
	}

	s.feedService = service.NewFeedService(postRepo, friendRepo, cfg.FeedWindow)
	s.postService = service.NewPostService(postRepo, commentRepo, censor, publisher)
	s.userService = service.NewUserService(userRepo, friendRepo)
	s.friendService = service.NewFriendService(friendRepo, userRepo, publisher)
	s.notifService = service.NewNotificationService(notificationRepo)
	s.groupService = service.NewGroupService(groupRepo, userRepo, friendRepo, publisher)
	s.gameService = service.NewGameService(gameRepo, userRepo, friendRepo, game.NewEngine(game.DefaultRegistry()), publisher)

	s.gameHub = notifications.NewGameHub(s.gameService)
	if local != nil {
		local.Games = s.gameHub
	}
	s.hubs = []wireableHub{s.hub, s.gameHub}

	if cfg.GameIdleTimeoutMinutes > 0 {
		sw, err := sweeper.New(s.gameService, cfg.GameSweepCron, time.Duration(cfg.GameIdleTimeoutMinutes)*time.Minute)
		if err != nil {
			return nil, err
		}
		s.sweeper = sw
	}

	return s, nil
}

// App builds the Fiber app with middleware and routes on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Seniority API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled request error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if s.config.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.RateLimitPerMinute,
			Expiration: time.Minute,
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
}

// SetupRoutes configures all routes for the application. Public and
// WebSocket routes are registered before the authenticated group.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Public reads; a bearer token, when present, personalizes them.
	api.Get("/feed", s.GetFeed)
	api.Get("/posts/:id/comments", s.GetComments)
	api.Get("/posts/:id", s.GetPost)
	api.Get("/users/:id/posts", s.GetUserPosts)
	api.Get("/games", s.GetGameCatalog)
	api.Get("/groups", s.GetGroups)
	api.Get("/groups/:id/members", s.GetGroupMembers)
	api.Get("/groups/:id", s.GetGroup)

	ws := api.Group("/ws", wsUpgradeRequired, middleware.WebSocketAuthRequired)
	ws.Get("/notifications", s.WebSocketNotificationsHandler())
	ws.Get("/games/:id", s.WebSocketGameHandler())

	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Patch("/me", s.UpdateMyProfile)
	users.Get("/me/groups", s.GetMyGroups)
	users.Get("/", s.GetUsers)
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	friends := protected.Group("/friends")
	friends.Get("/", s.GetFollowing)
	friends.Get("/requests", s.GetPendingRequests)
	friends.Post("/requests/:id/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:id", middleware.RateLimit(s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Delete("/requests/:id", s.RemoveFriendRequest)

	groups := protected.Group("/groups")
	groups.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "create_group"), s.CreateGroup)
	groups.Post("/:id/join", s.JoinGroup)
	groups.Post("/:id/invites/:userId", s.InviteToGroup)
	groups.Delete("/:id/members/me", s.LeaveGroup)

	inbox := protected.Group("/notifications")
	inbox.Get("/", s.GetNotifications)
	inbox.Post("/read", s.MarkAllNotificationsRead)
	inbox.Post("/:id/read", s.MarkNotificationRead)

	games := protected.Group("/games")
	games.Get("/stats", s.GetGameStats)
	games.Get("/sessions", s.GetActiveSessions)
	games.Post("/sessions", middleware.RateLimit(s.redis, 10, time.Minute, "game_challenge"), s.ChallengeGame)
	games.Get("/sessions/:id/moves", s.GetSessionMoves)
	games.Post("/sessions/:id/moves", s.MakeMove)
	games.Post("/sessions/:id/forfeit", s.ForfeitGame)
	games.Get("/sessions/:id", s.GetGameSession)
	games.Delete("/sessions/:id", s.DismissGame)
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles GET /health/ready. Redis is optional, so
// its absence is reported but does not fail the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the hubs and the sweeper, then serves until the app is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier != nil {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					observability.GlobalLogger.Error("hub wiring failed",
						slog.String("hub", h.Name()),
						slog.String("error", err.Error()),
					)
				}
			}()
		}
	}
	if s.sweeper != nil {
		go s.sweeper.Run(s.shutdownCtx)
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
