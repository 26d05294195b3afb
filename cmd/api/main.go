package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pedicare/clinic-api/internal/config"
	"github.com/pedicare/clinic-api/internal/email"
	"github.com/pedicare/clinic-api/internal/handler"
	appointmentHandler "github.com/pedicare/clinic-api/internal/handler/appointment"
	"github.com/pedicare/clinic-api/internal/handler/metrics"
	notificationHandler "github.com/pedicare/clinic-api/internal/handler/notification"
	"github.com/pedicare/clinic-api/internal/middleware"
	"github.com/pedicare/clinic-api/internal/repository/postgres"
	"github.com/pedicare/clinic-api/internal/router"
	appointmentService "github.com/pedicare/clinic-api/internal/service/appointment"
	notificationService "github.com/pedicare/clinic-api/internal/service/notification"
	"github.com/pedicare/clinic-api/internal/sms"
	"github.com/pedicare/clinic-api/pkg/auth"
	"github.com/pedicare/clinic-api/pkg/logger"
	"github.com/pedicare/clinic-api/pkg/messaging/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	base := postgres.NewBaseRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	userRepo := postgres.NewUserRepository(base)

	// External dispatch
	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	smsSvc := sms.NewSimulator(appLogger.Zerolog())

	// Services
	notifSvc := notificationService.NewService(notificationRepo, broker, appLogger.Zerolog())
	appointmentSvc := appointmentService.NewService(appointmentRepo, userRepo, notifSvc, emailSvc, smsSvc, appLogger.Zerolog())

	// HTTP surface
	authMiddleware := middleware.NewAuthMiddleware(auth.NewTokenValidator(cfg.JWT.Secret))
	r := router.NewRouter(
		authMiddleware,
		appointmentHandler.NewHandler(appointmentSvc),
		notificationHandler.NewHandler(notifSvc),
		handler.NewHealthHandler(db),
		metrics.New(),
		router.Config{
			RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst: cfg.RateLimit.Burst,
			CORS:      middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
