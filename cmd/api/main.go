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

	_ "github.com/FerventBolt/tesda-lms-api/api/swagger"
	"github.com/FerventBolt/tesda-lms-api/internal/handler"
	"github.com/FerventBolt/tesda-lms-api/internal/middleware"
	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/internal/repository"
	"github.com/FerventBolt/tesda-lms-api/internal/seed"
	"github.com/FerventBolt/tesda-lms-api/internal/service"
	"github.com/FerventBolt/tesda-lms-api/internal/store"
	"github.com/FerventBolt/tesda-lms-api/pkg/cache"
	"github.com/FerventBolt/tesda-lms-api/pkg/config"
	"github.com/FerventBolt/tesda-lms-api/pkg/database"
	"github.com/FerventBolt/tesda-lms-api/pkg/jobs"
	"github.com/FerventBolt/tesda-lms-api/pkg/logger"
	corsmiddleware "github.com/FerventBolt/tesda-lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/FerventBolt/tesda-lms-api/pkg/middleware/requestid"
	"github.com/FerventBolt/tesda-lms-api/pkg/storage"
)

// @title TESDA LMS API
// @version 1.0.0
// @description Learning management API for TESDA vocational training centers
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, lesson tier falls back to memory", "error", err)
		redisClient = nil
	}

	var kv store.KeyValueStore
	if redisClient != nil {
		kv = store.NewRedisStore(redisClient)
	} else {
		kv = store.NewMemoryStore()
	}

	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	reportRepo := repository.NewReportRepository(db)
	lessonRepo := repository.NewLessonRepository(kv, cfg.Catalog.LessonKeyTTL, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, metricsSvc, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tesda-lms-api",
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, seed.DefaultLessons, nil, logr)
	progressSvc := service.NewProgressService(enrollmentRepo, submissionRepo, lessonSvc, courseRepo, cacheRepo, cfg.Progress.CacheTTL, logr)
	courseSvc := service.NewCourseService(courseRepo, progressSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, lessonSvc, service.NewCapacityGuard(), progressSvc, nil, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, lessonSvc, enrollmentRepo, nil, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, nil, logr)
	reminderSvc := service.NewReminderService(reminderRepo, enrollmentRepo, nil, logr)

	if cfg.Catalog.SeedDefaults {
		if _, err := courseSvc.SeedDefaults(ctx, seed.DefaultCourses()); err != nil {
			logr.Sugar().Warnw("default catalog seeding failed", "error", err)
		}
	}

	if cfg.Enrollment.ReconcileEnabled {
		go reconcileLoop(ctx, enrollmentSvc, cfg.Enrollment.ReconcileInterval, logr)
	}

	// Report pipeline.
	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(enrollmentRepo, certificateRepo, courseRepo, progressSvc, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc = service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, progressSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, progressSvc, metricsSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	reminderHandler := handler.NewReminderHandler(reminderSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), "SELF"), userHandler.Get)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
	}

	courses := api.Group("/courses", middleware.JWT(authSvc))
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.GET("/:id/summary", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), courseHandler.Summary)
		courses.GET("/:id/pending-assignments", courseHandler.PendingAssignments)
		courses.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Deactivate)

		courses.GET("/:id/lessons", lessonHandler.List)
		courses.GET("/:id/lessons/:lessonId", lessonHandler.Get)
		courses.POST("/:id/lessons", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.Create)
		courses.PUT("/:id/lessons/:lessonId", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.Update)
		courses.DELETE("/:id/lessons/:lessonId", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.Delete)
		courses.POST("/:id/lessons/:lessonId/materials", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.AddMaterial)
		courses.POST("/:id/lessons/:lessonId/assignments", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.CreateAssignment)
		courses.POST("/:id/lessons/:lessonId/assignments/:assignmentId/publish", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), lessonHandler.PublishAssignment)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	{
		enrollments.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), enrollmentHandler.List)
		enrollments.GET("/me", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.MyEnrollments)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Enroll)
		enrollments.POST("/staff", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), enrollmentHandler.StaffEnroll)
		enrollments.POST("/:id/drop", enrollmentHandler.Drop)
		enrollments.POST("/:id/complete-lesson", enrollmentHandler.CompleteLesson)
		enrollments.POST("/:id/complete", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), enrollmentHandler.Complete)
		enrollments.POST("/reconcile", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.Reconcile)
	}

	submissions := api.Group("/submissions", middleware.JWT(authSvc))
	{
		submissions.GET("", submissionHandler.List)
		submissions.GET("/:id", submissionHandler.Get)
		submissions.POST("", middleware.RequireRoles(models.RoleStudent), submissionHandler.Submit)
		submissions.POST("/:id/grade", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), submissionHandler.Grade)
	}

	certificates := api.Group("/certificates", middleware.JWT(authSvc))
	{
		certificates.GET("", certificateHandler.List)
		certificates.GET("/:id", certificateHandler.Get)
		certificates.POST("", middleware.RequireRoles(models.RoleStudent), certificateHandler.Submit)
		certificates.PUT("/:id", middleware.RequireRoles(models.RoleStudent), certificateHandler.Edit)
		certificates.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), certificateHandler.Review)
	}

	reminders := api.Group("/reminders", middleware.JWT(authSvc))
	{
		reminders.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), reminderHandler.List)
		reminders.GET("/feed", reminderHandler.Feed)
		reminders.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), reminderHandler.Create)
		reminders.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), reminderHandler.Update)
		reminders.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), reminderHandler.Delete)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		reports := api.Group("/reports")
		{
			// The download token is self-authenticating.
			reports.GET("/download/:token", reportHandler.Download)
			reports.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), reportHandler.Create)
			reports.GET("/:id", middleware.JWT(authSvc), reportHandler.Status)
		}
	}

	api.GET("/metrics/snapshot", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if cacheRepo != nil {
		_ = cacheRepo.Close()
	}
}

// reconcileLoop periodically repairs drifted seat counters.
func reconcileLoop(ctx context.Context, svc *service.EnrollmentService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := svc.Reconcile(ctx)
			if err != nil {
				logr.Sugar().Warnw("reconcile pass failed", "error", err)
				continue
			}
			if repaired > 0 {
				logr.Sugar().Infow("reconcile pass repaired counters", "courses", repaired)
			}
		}
	}
}
