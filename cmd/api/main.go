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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-scheduler-api/api/swagger"
	"github.com/noah-isme/lesson-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	"github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

// @title Lesson Scheduler API
// @version 1.0.0
// @description Recurring lesson scheduling on top of an external record store
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	location, err := cfg.Location()
	if err != nil {
		logr.Fatal("invalid business timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	store := recordstore.New(
		cfg.RecordStore.BaseURL,
		cfg.RecordStore.BaseID,
		cfg.RecordStore.APIKey,
		recordstore.WithHTTPClient(cfg.RecordStore.HTTPClient()),
		recordstore.WithObserver(metrics),
	)
	lessonRepo := repository.NewLessonRepository(store, cfg.RecordStore.LessonsTable)
	directoryRepo := repository.NewDirectoryRepository(store, repository.Tables{
		Lessons:   cfg.RecordStore.LessonsTable,
		Students:  cfg.RecordStore.StudentsTable,
		Teachers:  cfg.RecordStore.TeachersTable,
		Guardians: cfg.RecordStore.GuardiansTable,
	})

	dispatcher := service.NewNotificationDispatcher(cfg.Notifications.Timeout, metrics, logr)
	enrichment := service.NewEnrichmentService(directoryRepo, location, logr)

	schedulingSvc, err := service.NewSchedulingService(lessonRepo, directoryRepo, dispatcher, cfg.Notifications.SchedulingWebhookURL, validate, metrics, logr)
	if err != nil {
		logr.Fatal("failed to init scheduling service", zap.Error(err))
	}
	lessonSvc := service.NewLessonService(lessonRepo, enrichment, dispatcher, cfg.Notifications.LessonReportWebhookURL, validate, logr)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	checks := map[string]handler.ReadinessCheck{
		"record_store": func(c *gin.Context) error {
			_, err := store.List(c.Request.Context(), cfg.RecordStore.LessonsTable, recordstore.ListOptions{PageSize: 1})
			return err
		},
	}

	if cfg.Scheduling.RunJournalEnabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect run journal database", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate run journal", zap.Error(err))
		}
		schedulingSvc.UseRunJournal(repository.NewSchedulingRunRepository(db))
		checks["database"] = func(c *gin.Context) error {
			return db.PingContext(c.Request.Context())
		}
		logr.Info("scheduling run journal enabled")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	schedulingHandler := handler.NewSchedulingHandler(schedulingSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))

	staff := api.Group("")
	staff.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	staff.POST("/lessons/schedule", schedulingHandler.Schedule)
	staff.GET("/lessons", lessonHandler.List)
	staff.GET("/lessons/:id", lessonHandler.Get)
	staff.POST("/lessons/:id/status", lessonHandler.Transition)

	admin := api.Group("")
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.GET("/scheduling/runs", schedulingHandler.ListRuns)
	admin.GET("/metrics/summary", metricsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "journal", cfg.Scheduling.RunJournalEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
