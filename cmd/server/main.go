package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/monitoring"
	"taskboard/internal/services"
	"taskboard/internal/storage"
	"taskboard/internal/store"
	"taskboard/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	kv, err := openKV(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()

	recordStore := store.New(kv)
	if err := recordStore.LoadAll(ctx); err != nil {
		log.Fatalf("Failed to load collections: %v", err)
	}
	if err := recordStore.PruneSessions(ctx, 0); err != nil {
		log.Printf("Warning: session prune failed: %v", err)
	}

	dashboard, err := config.LoadDashboard(ctx, kv)
	if err != nil {
		log.Printf("Warning: dashboard config unreadable, using defaults: %v", err)
		dashboard = config.DefaultDashboard()
	}

	authService := services.NewAuthService(recordStore, cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.BCryptCost)

	if err := seedAdmin(ctx, cfg, recordStore, authService); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	statsCache := buildCache(cfg)
	defer statsCache.Close()
	statsService := services.NewStatsService(recordStore, statsCache, dashboard.StatsInterval())
	registerService := services.NewRegisterService(recordStore, authService)
	taskService := services.NewTaskService(recordStore)
	editRequestService := services.NewEditRequestService(recordStore)
	userService := services.NewUserService(recordStore, authService)

	refresher := worker.NewRefresher(worker.RefresherConfig{
		Store:            recordStore,
		Stats:            statsService,
		ClockInterval:    dashboard.ClockInterval(),
		DeadlineInterval: dashboard.DeadlinesInterval(),
		StatsInterval:    dashboard.StatsInterval(),
	})
	refresher.Start()
	defer refresher.Stop()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()

	health := monitoring.NewHealthChecker()
	health.Register("storage", kv.Health)
	health.Register("store", recordStore.Health)

	router := buildRouter(cfg, recordStore, kv, rateLimiter, health,
		handlers.NewAuthHandler(authService),
		handlers.NewRegisterHandler(registerService),
		handlers.NewTaskHandler(taskService),
		handlers.NewEditRequestHandler(editRequestService),
		handlers.NewUserHandler(userService),
		handlers.NewDashboardHandler(statsService, refresher, kv),
	)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Listen failures are reported back here instead of exiting the
	// goroutine with log.Fatal, so the deferred teardown still runs.
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s (storage driver %s)", cfg.GetServerAddr(), cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Printf("Server failed: %v", err)
	case <-quit:
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Forced shutdown: %v", err)
		}
	}
	log.Println("Server stopped")
}

func openKV(cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Driver {
	case "file":
		return storage.OpenFileKV(cfg.Storage.Dir)
	case "sqlite", "postgres":
		return storage.OpenGormKV(cfg.Storage.Driver, cfg.Storage.DSN)
	case "redis":
		return storage.OpenRedisKV(&storage.RedisKVConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildCache picks the snapshot cache. With the redis storage driver the
// cache shares the same server so restarts keep warm aggregates; otherwise
// an in-process cache is enough.
func buildCache(cfg *config.Config) cache.Cache {
	if cfg.Storage.Driver != "redis" {
		return cache.NewMemoryCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	return cache.NewRedisCache(client)
}

// seedAdmin creates the initial administrator when the user collection is
// empty, so a fresh deployment has a way in. Requires SEED_ADMIN_PASS.
func seedAdmin(ctx context.Context, cfg *config.Config, s *store.Store, auth services.AuthService) error {
	if len(s.Users()) > 0 {
		return nil
	}
	if cfg.Auth.SeedAdminPass == "" {
		log.Println("Warning: no users exist and SEED_ADMIN_PASS is unset; skipping admin seed")
		return nil
	}

	hash, err := auth.HashPassword(cfg.Auth.SeedAdminPass)
	if err != nil {
		return err
	}
	admin, err := models.NewUser(cfg.Auth.SeedAdminUser, cfg.Auth.SeedAdminEmail, hash, models.RoleAdmin)
	if err != nil {
		return err
	}
	created, err := s.AddUser(ctx, *admin)
	if err != nil {
		return err
	}
	log.Printf("Seeded admin account %q (id %d)", created.Username, created.ID)
	return nil
}

func buildRouter(
	cfg *config.Config,
	recordStore *store.Store,
	kv storage.KV,
	rateLimiter *middleware.RateLimiter,
	health *monitoring.HealthChecker,
	authHandler *handlers.AuthHandler,
	registerHandler *handlers.RegisterHandler,
	taskHandler *handlers.TaskHandler,
	editRequestHandler *handlers.EditRequestHandler,
	userHandler *handlers.UserHandler,
	dashboardHandler *handlers.DashboardHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(monitoring.MetricsMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(rateLimiter.Middleware())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", health.Handler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("/api")
	{
		api.POST("/auth/token", authHandler.Token)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/auth/logout", authHandler.Logout)
		api.POST("/register", registerHandler.Register)
	}

	authed := api.Group("")
	authed.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Store:  recordStore,
	}))
	{
		authed.GET("/tasks", taskHandler.List)
		authed.POST("/tasks", taskHandler.Create)
		authed.GET("/tasks/:id", taskHandler.Get)
		authed.PUT("/tasks/:id", taskHandler.Update)
		authed.DELETE("/tasks/:id", taskHandler.Delete)

		authed.GET("/edit-requests", editRequestHandler.List)
		authed.POST("/edit-requests", editRequestHandler.Submit)
		authed.POST("/edit-requests/:id/approve", editRequestHandler.Approve)
		authed.POST("/edit-requests/:id/reject", editRequestHandler.Reject)

		authed.GET("/profile", userHandler.Profile)
		authed.PUT("/profile", userHandler.UpdateProfile)
		authed.PUT("/profile/password", userHandler.ChangePassword)

		authed.GET("/dashboard/stats", dashboardHandler.Stats)
		authed.GET("/dashboard/calendar", dashboardHandler.Calendar)
		authed.GET("/dashboard/report", dashboardHandler.Report)
		authed.GET("/dashboard/alerts", dashboardHandler.Alerts)

		authed.GET("/config", dashboardHandler.GetConfig)
	}

	admin := api.Group("")
	admin.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Store:  recordStore,
		Role:   models.RoleAdmin,
	}))
	{
		admin.GET("/users", userHandler.List)
		admin.PUT("/users/:id/role", userHandler.SetRole)
		admin.DELETE("/users/:id", userHandler.Delete)

		admin.PUT("/config", dashboardHandler.PutConfig)
	}

	return router
}
