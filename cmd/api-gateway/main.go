package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/usis-routine-api/api/swagger"
	"github.com/noah-isme/usis-routine-api/internal/handler"
	internalmiddleware "github.com/noah-isme/usis-routine-api/internal/middleware"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	"github.com/noah-isme/usis-routine-api/internal/repository"
	"github.com/noah-isme/usis-routine-api/internal/service"
	"github.com/noah-isme/usis-routine-api/pkg/cache"
	"github.com/noah-isme/usis-routine-api/pkg/config"
	"github.com/noah-isme/usis-routine-api/pkg/database"
	"github.com/noah-isme/usis-routine-api/pkg/export"
	"github.com/noah-isme/usis-routine-api/pkg/jobs"
	"github.com/noah-isme/usis-routine-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/usis-routine-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/usis-routine-api/pkg/middleware/requestid"
)

// @title USIS Routine API
// @version 1.0.0
// @description Conflict-free class routine planner over the university section catalog
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.ReadinessCheck{}

	var cacheSvc *service.CacheService
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck

		cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)
		checks["redis"] = cacheRepo.Ping
	}

	var mirror service.CatalogMirror
	if cfg.Catalog.MirrorEnabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck

		sectionRepo := repository.NewSectionRepository(db, metricsSvc)
		if err := sectionRepo.EnsureSchema(ctx); err != nil {
			logr.Sugar().Fatalw("failed to prepare catalog mirror", "error", err)
		}
		mirror = sectionRepo
		checks["postgres"] = databaseCheck(db)
	}

	catalogClient := service.NewCatalogHTTPClient(service.CatalogClientConfig{
		URL:        cfg.Catalog.URL,
		MaxRetries: cfg.Catalog.MaxRetries,
		RetryDelay: cfg.Catalog.RetryDelay,
	}, &http.Client{Timeout: cfg.Catalog.Timeout}, metricsSvc, logr)

	feedbackClient := service.NewFeedbackHTTPClient(service.FeedbackClientConfig{
		Enabled:    cfg.Feedback.Enabled,
		BaseURL:    cfg.Feedback.BaseURL,
		Model:      cfg.Feedback.Model,
		APIKey:     cfg.Feedback.APIKey,
		MaxRetries: cfg.Feedback.MaxRetries,
		RetryDelay: cfg.Feedback.RetryDelay,
	}, &http.Client{Timeout: cfg.Feedback.Timeout}, metricsSvc, logr)

	routinePlanner := planner.New(planner.Options{
		MaxCombinations: cfg.Planner.MaxCombinations,
		Logger:          logr,
		Observer:        metricsSvc,
	})

	catalogSvc := service.NewCatalogService(catalogClient, mirror, routinePlanner, cacheSvc, cfg.Catalog.CacheTTL, logr)

	refreshTimeout := service.RefreshTimeout(cfg.Catalog.Timeout, cfg.Catalog.MaxRetries, cfg.Catalog.RetryDelay)
	refreshSvc := service.NewCatalogRefreshService(catalogSvc, refreshTimeout, logr)
	refreshQueue := jobs.NewQueue("catalog-refresh", refreshSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Catalog.RefreshWorkers,
		BufferSize: 8,
		MaxRetries: service.CatalogRefreshJobRetries,
		RetryDelay: cfg.Catalog.RetryDelay,
		Logger:     logr,
		OnResult: func(job jobs.Job, err error, took time.Duration) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			metricsSvc.ObserveUpstreamCall("catalog_refresh_job", outcome, took)
		},
	})
	refreshSvc.AttachQueue(refreshQueue)
	refreshQueue.Start(ctx)
	defer refreshQueue.Stop()

	if cfg.Catalog.CacheEnabled || cfg.Catalog.MirrorEnabled {
		if _, err := refreshSvc.Enqueue("startup"); err != nil {
			logr.Warn("failed to schedule startup catalog refresh", zap.Error(err))
		}
	}

	exportSvc := service.NewExportService(service.ExportConfig{Title: cfg.Export.Title}, logr, export.NewCSVExporter(), export.NewPDFExporter())
	routineSvc := service.NewRoutineService(catalogSvc, routinePlanner, feedbackClient, exportSvc, validate, metricsSvc, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, refreshSvc)
	routineHandler := handler.NewRoutineHandler(routineSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/courses", catalogHandler.Courses)
		api.GET("/courses/:code/sections", catalogHandler.Sections)
		api.GET("/faculty", catalogHandler.Faculty)
		api.GET("/exam-schedule", catalogHandler.ExamSchedule)
		api.POST("/catalog/refresh", catalogHandler.Refresh)

		routine := api.Group("/routine")
		routine.POST("", routineHandler.Plan)
		routine.POST("/exam-conflicts", routineHandler.ExamConflicts)
		routine.POST("/time-conflicts", routineHandler.TimeConflicts)
		routine.POST("/feedback", routineHandler.Feedback)
		routine.POST("/export", routineHandler.Export)

		api.GET("/metrics/system", metricsHandler.System)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func databaseCheck(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
