package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mercadolibros/internal/config"
	"mercadolibros/internal/database"
	custommiddleware "mercadolibros/internal/middleware"
	"mercadolibros/internal/repository"
	"mercadolibros/internal/service"
	"mercadolibros/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers over the database
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) *Server {
	server := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  newRedisClient(cfg.RateLimit, logger),
	}

	server.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      newRouter(cfg, logger, db, repository.NewStore(db.DB()), server.redis),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func newRouter(cfg *config.Config, logger *zap.Logger, health healthChecker, store repository.Store, rdb *redis.Client) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := health.Health(r.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, stats)
	})

	var writeLimiter func(http.Handler) http.Handler
	if rdb != nil {
		writeLimiter = custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "mercadolibros:writes",
		}, logger)
	}

	genreService := service.NewGenreService(store, logger)
	bookService := service.NewBookService(store, logger)

	transport.NewGenreHandler(genreService, logger).RegisterRoutes(router, writeLimiter)
	transport.NewBookHandler(bookService, logger).RegisterRoutes(router, writeLimiter)

	return router
}

// newRedisClient returns nil when rate limiting is disabled or Redis is unreachable
func newRedisClient(cfg config.RateLimitConfig, logger *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, write rate limiting disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		client.Close()
		return nil
	}

	logger.Info("Write rate limiting enabled",
		zap.Int("requests", cfg.RequestsPerWindow),
		zap.Duration("window", cfg.Window),
	)
	return client
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
