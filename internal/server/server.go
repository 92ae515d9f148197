package server

import (
	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/auth"
	"backend-socialgraph/internal/config"
	"backend-socialgraph/internal/graph"
	"backend-socialgraph/internal/identity"
	"backend-socialgraph/internal/post"
	"backend-socialgraph/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	Redis  *redis.Client
	Log    *zap.Logger
	Stream *stream.Hub

	Users *identity.Service
	Graph *graph.Service
	Posts *post.Service
	Feed  *post.Feed
}

func NewServer(cfg config.Config, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(log)})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	creds := auth.NewService(cfg.JWTSecret, cfg.BcryptCost)
	hub := stream.NewHub(redisClient, log.Named("stream"))
	users := identity.NewService(redisClient, creds, log.Named("identity"))
	posts := post.NewService(redisClient, hub, log.Named("post"))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		Redis:  redisClient,
		Log:    log,
		Stream: hub,
		Users:  users,
		Graph:  graph.NewService(redisClient, users, log.Named("graph")),
		Posts:  posts,
		Feed:   post.NewFeed(redisClient, users, posts),
	}

	registerRoutes(s, creds)
	return s
}

func registerRoutes(s *Server, creds *auth.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	identity.RegisterRoutes(s.App.Group("/user"), s.Users, s.Graph, creds)
	graph.RegisterRoutes(s.App, s.Graph)
	post.RegisterRoutes(s.App, s.Posts, s.Feed)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, auth.JWTMiddleware(s.Cfg.JWTSecret))
}

// errorHandler renders failures and logs the ones that are not the caller's fault.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if apperr.Status(err) >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
				zap.Error(err))
		}
		return apperr.Handler(c, err)
	}
}
