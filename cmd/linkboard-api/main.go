package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/linkboard-io/linkboard-api/api/swagger"
	"github.com/linkboard-io/linkboard-api/internal/handler"
	"github.com/linkboard-io/linkboard-api/internal/middleware"
	"github.com/linkboard-io/linkboard-api/internal/repository"
	"github.com/linkboard-io/linkboard-api/internal/service"
	"github.com/linkboard-io/linkboard-api/pkg/cache"
	"github.com/linkboard-io/linkboard-api/pkg/config"
	"github.com/linkboard-io/linkboard-api/pkg/database"
	"github.com/linkboard-io/linkboard-api/pkg/jobs"
	"github.com/linkboard-io/linkboard-api/pkg/logger"
	corsmiddleware "github.com/linkboard-io/linkboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/linkboard-io/linkboard-api/pkg/middleware/requestid"
	"github.com/linkboard-io/linkboard-api/pkg/storage"
)

// @title Linkboard API
// @version 1.0.0
// @description Bookmark dashboard with scoped, access-controlled public shares
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache and rate limiting degraded", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	shareRepo := repository.NewShareRepository(db)
	overlayRepo := repository.NewOverlayRepository(db)
	eventRepo := repository.NewAccessEventRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Background queues.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventQueue := jobs.NewQueue("access-events", service.NewAccessEventHandler(eventRepo, logr), jobs.QueueConfig{
		Workers:    cfg.Shares.EventQueueWorkers,
		BufferSize: cfg.Shares.EventQueueBuffer,
		Logger:     logr,
	})
	eventQueue.Start(ctx)
	defer eventQueue.Stop()

	// Services.
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "linkboard-api",
	})
	metricsService := service.NewMetricsService()
	contentService := service.NewContentService(bookmarkRepo, groupRepo, cacheRepo, cfg.Shares.CatalogCacheTTL, logr)
	policyService := service.NewPolicyService(shareRepo, logr, service.PolicyConfig{
		AdmitRetries:    cfg.Shares.AdmitRetries,
		AdmitRetryDelay: cfg.Shares.AdmitRetryDelay,
	})
	overlayService := service.NewOverlayService(overlayRepo, validate, logr)
	resolutionService := service.NewResolutionService(shareRepo, bookmarkRepo, policyService, contentService, overlayService, eventQueue, logr)
	shareService := service.NewShareService(shareRepo, validate, cfg.Shares.UIDBytes, logr)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, contentService, validate, logr)
	groupService := service.NewGroupService(groupRepo, contentService, validate, logr)

	var analyticsService *service.AnalyticsService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		analyticsService = service.NewAnalyticsService(shareRepo, eventRepo, exportJobRepo, nil, fileStore, signer, service.AnalyticsConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		exportQueue = jobs.NewQueue("analytics-exports", analyticsService.ExportHandler(), jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		analyticsService.SetQueue(exportQueue)
	} else {
		analyticsService = service.NewAnalyticsService(shareRepo, eventRepo, exportJobRepo, nil, nil, nil, service.AnalyticsConfig{
			APIPrefix: cfg.APIPrefix,
		}, logr, nil, nil)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	publicHandler := handler.NewPublicShareHandler(resolutionService, overlayService, metricsService)
	shareAdminHandler := handler.NewShareAdminHandler(shareService, analyticsService)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService)
	groupHandler := handler.NewGroupHandler(groupService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public share surface. Rate limiting runs before any share lookup.
	public := api.Group("/share/:uid")
	public.Use(middleware.ShareSession())
	if cfg.Shares.RateLimitEnabled {
		public.Use(middleware.RateLimit(cacheRepo, middleware.RateLimitConfig{
			Requests: cfg.Shares.RateLimitRequests,
			Window:   cfg.Shares.RateLimitWindow,
		}, logr))
	}
	public.GET("", publicHandler.Resolve)
	public.POST("/click/:bookmarkId", publicHandler.TrackClick)
	public.POST("/bookmarks", publicHandler.AddBookmark)
	public.PUT("/bookmarks/:bookmarkId", publicHandler.UpdateBookmark)
	public.DELETE("/bookmarks/:bookmarkId", publicHandler.RemoveBookmark)
	public.POST("/groups", publicHandler.AddGroup)
	public.PUT("/bookmarks/:bookmarkId/hidden", publicHandler.SetHidden)
	public.PUT("/bookmarks/:bookmarkId/favorite", publicHandler.SetFavorite)
	public.PUT("/bookmarks/:bookmarkId/tag", publicHandler.SetCustomTag)
	public.PUT("/preferences", publicHandler.SetPreferences)

	// Owner authentication.
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("")
	authed.Use(middleware.JWT(authService))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	// Owner surface.
	admin := api.Group("")
	admin.Use(middleware.JWT(authService))

	admin.GET("/bookmarks", bookmarkHandler.List)
	admin.POST("/bookmarks", bookmarkHandler.Create)
	admin.GET("/bookmarks/:id", bookmarkHandler.Get)
	admin.PUT("/bookmarks/:id", bookmarkHandler.Update)
	admin.DELETE("/bookmarks/:id", bookmarkHandler.Delete)

	admin.GET("/groups", groupHandler.List)
	admin.POST("/groups", groupHandler.Create)
	admin.GET("/groups/:id", groupHandler.Get)
	admin.PUT("/groups/:id", groupHandler.Update)
	admin.DELETE("/groups/:id", groupHandler.Delete)

	admin.GET("/shares", shareAdminHandler.List)
	admin.POST("/shares", shareAdminHandler.Create)
	admin.GET("/shares/:id", shareAdminHandler.Get)
	admin.PUT("/shares/:id", shareAdminHandler.Update)
	admin.DELETE("/shares/:id", shareAdminHandler.Delete)
	admin.GET("/shares/:id/stats", shareAdminHandler.Stats)
	admin.GET("/shares/:id/events", shareAdminHandler.Events)
	admin.POST("/shares/:id/exports", shareAdminHandler.CreateExport)
	admin.GET("/shares/exports/:jobId", shareAdminHandler.GetExport)
	admin.GET("/system/metrics", metricsHandler.Snapshot)

	// Download links are pre-signed; no bearer token required.
	api.GET("/shares/exports/download/:token", shareAdminHandler.DownloadExport)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
