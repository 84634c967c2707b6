package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadly/timetable-api/api/swagger"
	"github.com/acadly/timetable-api/internal/handler"
	"github.com/acadly/timetable-api/internal/middleware"
	"github.com/acadly/timetable-api/internal/models"
	"github.com/acadly/timetable-api/internal/repository"
	"github.com/acadly/timetable-api/internal/service"
	"github.com/acadly/timetable-api/pkg/cache"
	"github.com/acadly/timetable-api/pkg/config"
	"github.com/acadly/timetable-api/pkg/database"
	"github.com/acadly/timetable-api/pkg/export"
	"github.com/acadly/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadly/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadly/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly class scheduling and conflict resolution service
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

	if err := database.RunMigrations(db.DB, logr); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	if cfg.Analytics.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, analytics cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	professorSvc := service.NewProfessorService(userRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, userRepo, validate, logr, cfg.Engine.StorageTimeout)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(assignmentSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	professorHandler := handler.NewProfessorHandler(professorSvc, assignmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, analyticsSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	professors := authed.Group("/professors")
	professors.GET("", professorHandler.List)
	professors.POST("", middleware.RequireRoles(models.RoleHOD), professorHandler.Register)
	professors.GET("/:username/schedule", professorHandler.Schedule)

	assignments := authed.Group("/assignments")
	assignments.GET("", assignmentHandler.List)
	assignments.POST("", middleware.RequireRoles(models.RoleHOD), assignmentHandler.Assign)
	assignments.GET("/group/:groupNo", assignmentHandler.ListByGroup)
	assignments.PUT("/:id", middleware.RequireRoles(models.RoleHOD), assignmentHandler.Update)
	assignments.DELETE("/:id", middleware.RequireRoles(models.RoleHOD), assignmentHandler.Delete)

	authed.GET("/analytics/schedules", middleware.RequireRoles(models.RoleHOD), analyticsHandler.Schedules)

	exports := authed.Group("/exports")
	exports.GET("/professors/:username", exportHandler.ProfessorTimetable)
	exports.GET("/groups/:groupNo", exportHandler.GroupTimetable)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
