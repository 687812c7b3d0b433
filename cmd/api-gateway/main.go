package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/lumenlms/lumen-api/api/swagger"
	"github.com/lumenlms/lumen-api/internal/handler"
	"github.com/lumenlms/lumen-api/internal/middleware"
	"github.com/lumenlms/lumen-api/internal/repository"
	"github.com/lumenlms/lumen-api/internal/service"
	"github.com/lumenlms/lumen-api/pkg/cache"
	"github.com/lumenlms/lumen-api/pkg/config"
	"github.com/lumenlms/lumen-api/pkg/database"
	"github.com/lumenlms/lumen-api/pkg/export"
	"github.com/lumenlms/lumen-api/pkg/logger"
	corsmiddleware "github.com/lumenlms/lumen-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lumenlms/lumen-api/pkg/middleware/requestid"
)

// @title Lumen LMS API
// @version 1.0.0
// @description Multi-tenant learning content platform built around a connection graph
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, access cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Connections.AccessCacheTTL, logr, true)
	}

	accessSvc := service.NewAccessService(connectionRepo, courseRepo, collectionRepo, cacheSvc, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, nil, cfg.Notifications, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lumen-api",
		Audience:           []string{"lumen"},
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	teamSvc := service.NewTeamService(teamRepo, accessSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, accessSvc, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	collectionSvc := service.NewCollectionService(collectionRepo, accessSvc, validate, logr)
	connectionSvc := service.NewConnectionService(
		connectionRepo, userRepo, teamRepo, courseRepo, collectionRepo,
		accessSvc, notificationSvc, metrics,
		service.ConnectionServiceConfig{WelcomeTeamID: cfg.Connections.WelcomeTeamID},
		validate, logr,
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
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
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		Teams:          handler.NewTeamHandler(teamSvc),
		Courses:        handler.NewCourseHandler(courseSvc, accessSvc),
		Collections:    handler.NewCollectionHandler(collectionSvc),
		Connections:    handler.NewConnectionHandler(connectionSvc),
		Metrics:        metricsHandler,
		ExportsEnabled: cfg.Exports.Enabled,
	}, authSvc, userRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
