package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/guestlist/internal/changefeed"
	"github.com/HammerMeetNail/guestlist/internal/config"
	"github.com/HammerMeetNail/guestlist/internal/database"
	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/docstore/memory"
	"github.com/HammerMeetNail/guestlist/internal/docstore/postgres"
	"github.com/HammerMeetNail/guestlist/internal/handlers"
	"github.com/HammerMeetNail/guestlist/internal/logging"
	"github.com/HammerMeetNail/guestlist/internal/middleware"
	"github.com/HammerMeetNail/guestlist/internal/services"
	"github.com/HammerMeetNail/guestlist/migrations"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting guestlist server...", map[string]interface{}{
		"env":   cfg.Server.Environment,
		"store": cfg.Store.Driver,
	})

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newHandler(cfg, logger, backend),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": server.Addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// backend holds the document store and the connections behind it. db and
// redis are nil for the memory driver.
type backend struct {
	store docstore.Store
	db    *database.PostgresDB
	redis *database.RedisDB
}

func (b *backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func openBackend(cfg *config.Config, logger *logging.Logger) (*backend, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("Using in-memory document store; data is lost on restart")
		return &backend{store: memory.New()}, nil
	}

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDBWithOptions(cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.Database.DSN(), migrations.FS, ".", logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(database.RedisOptions{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	feed := changefeed.NewRedisFeed(redisDB.Client, cfg.Redis.ChannelPrefix, logger)
	return &backend{
		store: postgres.New(db.DB(), feed, logger),
		db:    db,
		redis: redisDB,
	}, nil
}

func newHandler(cfg *config.Config, logger *logging.Logger, b *backend) http.Handler {
	notificationService := services.NewNotificationService(b.store)
	relationshipService := services.NewRelationshipService(b.store, notificationService)
	guestlistService := services.NewGuestlistService(b.store, notificationService)
	membershipService := services.NewMembershipService(b.store, notificationService)

	// Typed nils must not reach the interfaces below.
	var dbCheck, redisCheck handlers.HealthChecker
	var counter redis.Cmdable
	if b.db != nil {
		dbCheck = b.db
	}
	if b.redis != nil {
		redisCheck = b.redis
		if cfg.RateLimit.Enabled {
			counter = b.redis.Client
		}
	}

	healthHandler := handlers.NewHealthHandler(dbCheck, redisCheck)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	guestlistHandler := handlers.NewGuestlistHandler(guestlistService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	identity := middleware.NewIdentity()
	rateLimiter := middleware.NewWriteRateLimiter(counter, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	api := func(h http.HandlerFunc) http.Handler {
		return identity.RequireIdentity(rateLimiter.Middleware(h))
	}

	mux := http.NewServeMux()

	// Health endpoints (no identity, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Relationships
	mux.Handle("POST /api/relationships/{id}/request", api(relationshipHandler.SendRequest))
	mux.Handle("POST /api/relationships/{id}/accept", api(relationshipHandler.Accept))
	mux.Handle("DELETE /api/relationships/{id}", api(relationshipHandler.Remove))
	mux.Handle("POST /api/relationships/{id}/block", api(relationshipHandler.Block))
	mux.Handle("DELETE /api/relationships/{id}/block", api(relationshipHandler.Unblock))
	mux.Handle("GET /api/relationships/{id}", api(relationshipHandler.Status))
	mux.Handle("GET /api/relationships/{id}/watch", api(relationshipHandler.Watch))
	mux.Handle("GET /api/friends", api(relationshipHandler.ListFriends))
	mux.Handle("GET /api/friends/requests", api(relationshipHandler.ListRequests))

	// Guestlists
	mux.Handle("POST /api/events/{id}/guestlist", api(guestlistHandler.Join))
	mux.Handle("DELETE /api/events/{id}/guestlist", api(guestlistHandler.Leave))
	mux.Handle("GET /api/events/{id}/guestlist", api(guestlistHandler.List))
	mux.Handle("GET /api/events/{id}/action-state", api(guestlistHandler.ActionState))
	mux.Handle("POST /api/events/{id}/requests", api(guestlistHandler.RequestToJoin))
	mux.Handle("POST /api/events/{id}/requests/{user}/approve", api(guestlistHandler.Approve))
	mux.Handle("POST /api/events/{id}/guestlist/{user}", api(guestlistHandler.Invite))
	mux.Handle("PUT /api/events/{id}/guestlist/{user}/check-in", api(guestlistHandler.CheckIn))
	mux.Handle("DELETE /api/events/{id}/guestlist/{user}", api(guestlistHandler.Remove))

	// Host memberships
	mux.Handle("GET /api/hosts/{id}/members", api(membershipHandler.Members))
	mux.Handle("POST /api/hosts/{id}/members/{user}", api(membershipHandler.Invite))
	mux.Handle("PUT /api/hosts/{id}/members/me/accept", api(membershipHandler.Accept))
	mux.Handle("PUT /api/hosts/{id}/members/me/reject", api(membershipHandler.Reject))
	mux.Handle("DELETE /api/hosts/{id}/members/{user}", api(membershipHandler.Remove))

	// Notifications
	mux.Handle("GET /api/notifications", api(notificationHandler.List))
	mux.Handle("GET /api/notifications/unread-count", api(notificationHandler.UnreadCount))
	mux.Handle("PUT /api/notifications/read-all", api(notificationHandler.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", api(notificationHandler.MarkRead))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = identity.Apply(handler)
	handler = middleware.NewCompress().Apply(handler)
	handler = middleware.NewSecurityHeaders(cfg.Server.Environment == "production").Apply(handler)
	handler = middleware.NewRequestLogger(logger).Apply(handler)
	return handler
}
