package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ManoharAnkathi/HUBILO/internal/handlers"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
	"github.com/ManoharAnkathi/HUBILO/internal/service"
	"github.com/ManoharAnkathi/HUBILO/pkg/config"
	"github.com/ManoharAnkathi/HUBILO/pkg/database"
	"github.com/ManoharAnkathi/HUBILO/pkg/events"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
	"github.com/ManoharAnkathi/HUBILO/pkg/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var bus events.EventBus
	if cfg.NATS.URL != "" {
		bus, err = events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Warn("event bus unavailable, continuing without events", "error", err)
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	mail := buildMailer(cfg)

	accountRepo := repository.NewAccountRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	listingRepo := repository.NewListingRepository(db)
	otpRepo := repository.NewOTPRepository(redisClient)
	tokenRepo := repository.NewTokenRepository(db)
	limiter := repository.NewRateLimitRepository(db)

	var publisher events.Publisher
	if bus != nil {
		publisher = bus
	}

	accountSvc := service.NewAccountService(
		accountRepo, tokenRepo, mail, publisher,
		cfg.Auth.JWTSecret,
		cfg.Auth.SessionTTL, cfg.Auth.VerificationLinkTTL, cfg.Auth.PasswordResetTTL,
		cfg.Server.BaseURL,
	)
	if cfg.Admin.Email != "" {
		if err := accountSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logger.Error("failed to seed admin account", "error", err)
			os.Exit(1)
		}
	}

	otpSvc := service.NewOTPService(otpRepo, accountRepo, mail, publisher, cfg.Auth.OTPWindow)
	bookingSvc := service.NewBookingService(bookingRepo, listingRepo, accountRepo, mail, publisher)
	listingSvc := service.NewListingService(listingRepo)

	h := handlers.New(accountSvc, otpSvc, bookingSvc, listingSvc, limiter, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ServiceName("hubilo-api"))
	r.Use(middleware.Logging)
	r.Use(middleware.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
		case <-gctx.Done():
			return gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildMailer(cfg *config.Config) mailer.Mailer {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSendMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass,
			cfg.Email.FromName, cfg.Email.SMTPFrom,
		)
	}
}
