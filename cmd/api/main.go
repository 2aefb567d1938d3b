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

	_ "github.com/carebook/carebook-api/api/swagger"
	"github.com/carebook/carebook-api/internal/handler"
	"github.com/carebook/carebook-api/internal/middleware"
	"github.com/carebook/carebook-api/internal/models"
	"github.com/carebook/carebook-api/internal/repository"
	"github.com/carebook/carebook-api/internal/service"
	"github.com/carebook/carebook-api/pkg/cache"
	"github.com/carebook/carebook-api/pkg/config"
	"github.com/carebook/carebook-api/pkg/database"
	"github.com/carebook/carebook-api/pkg/export"
	"github.com/carebook/carebook-api/pkg/jobs"
	"github.com/carebook/carebook-api/pkg/logger"
	corsmiddleware "github.com/carebook/carebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/carebook/carebook-api/pkg/middleware/requestid"
	"github.com/carebook/carebook-api/pkg/storage"
)

// @title CareBook API
// @version 1.0.0
// @description Doctor appointment booking and payments
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

	loc, err := time.LoadLocation(cfg.Scheduling.TimeZone)
	if err != nil {
		logr.Sugar().Fatalw("invalid scheduling time zone", "zone", cfg.Scheduling.TimeZone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Jobs.NotificationWorkers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	}, logr)

	authSvc := service.NewAuthService(userRepo, patientRepo, doctorRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	slots := service.NewSlotValidator(loc)
	bookingSvc := service.NewBookingService(appointmentRepo, doctorRepo, patientRepo, slots, validate, notificationSvc, metricsSvc, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, doctorRepo, patientRepo, validate, notificationSvc, export.NewCSVExporter(), logr)
	doctorSvc := service.NewDoctorService(doctorRepo, appointmentRepo, validate, logr)
	currencySvc := service.NewCurrencyService(cfg.Currency, cacheRepo, metricsSvc, logr)

	var receiptSvc *service.ReceiptService
	if cfg.Receipts.Enabled {
		receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init receipt storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
		receiptSvc = service.NewReceiptService(appointmentRepo, receiptStore, signer, jobs.QueueConfig{
			Workers:    cfg.Jobs.ReceiptWorkers,
			MaxRetries: cfg.Jobs.MaxRetries,
			RetryDelay: cfg.Jobs.RetryDelay,
			Logger:     logr,
		}, logr)
	}

	paymentSvc := service.NewPaymentService(cfg.Payments, appointmentRepo, appointmentSvc, currencySvc, receiptSvc, notificationSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()
	if receiptSvc != nil {
		receiptSvc.Start(ctx)
		defer receiptSvc.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	authHandler := handler.NewAuthHandler(authSvc)
	doctorHandler := handler.NewDoctorHandler(doctorSvc)
	appointmentHandler := handler.NewAppointmentHandler(bookingSvc, appointmentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, receiptSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	doctors := api.Group("/doctors")
	doctors.GET("/:doctorId", doctorHandler.Get)
	doctors.POST("/:doctorId/appointments", middleware.JWT(authSvc), middleware.RequireRoles(models.RolePatient), appointmentHandler.Book)

	schedule := api.Group("/schedule", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleDoctor))
	schedule.PUT("", doctorHandler.ReplaceSchedule)
	schedule.PUT("/entries/:index", doctorHandler.UpdateScheduleEntry)
	schedule.POST("/unavailability", doctorHandler.AddUnavailability)

	appointments := api.Group("/appointments", middleware.JWT(authSvc))
	appointments.GET("", appointmentHandler.List)
	appointments.GET("/:id", appointmentHandler.Get)
	appointments.PUT("/:id/status", appointmentHandler.UpdateStatus)
	appointments.DELETE("/:id", appointmentHandler.Delete)
	appointments.POST("/:id/checkout", paymentHandler.Checkout)
	appointments.GET("/:id/receipt", paymentHandler.ReceiptLink)

	api.GET("/exports/appointments", middleware.JWT(authSvc), appointmentHandler.Export)

	api.POST("/payments/webhook", paymentHandler.Webhook)
	api.GET("/receipts/download", paymentHandler.DownloadReceipt)

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	notifications.GET("", notificationHandler.List)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "time_zone", cfg.Scheduling.TimeZone)
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
