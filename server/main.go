package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketbooth/api/routes"
	"ticketbooth/internal/bookings"
	"ticketbooth/internal/notifications"
	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/database"
	"ticketbooth/internal/shared/middleware"
	"ticketbooth/pkg/logger"
	"ticketbooth/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	if err := run(appLogger); err != nil {
		appLogger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	appLogger.Info("Server exited gracefully")
}

func run(appLogger *logger.Logger) error {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	publisher, err := newPublisher(cfg, appLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	appRouter, err := routes.NewRouter(ctx, cfg, db, publisher, appLogger)
	if err != nil {
		return err
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, cfg.RateLimit, nil)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        setupEngine(appRouter, rateLimiter, appLogger),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	var dispatcher *notifications.Dispatcher
	if cfg.Kafka.Enabled {
		sender, err := newTicketSender(cfg, appLogger)
		if err != nil {
			return err
		}
		dispatcher, err = notifications.NewDispatcher(cfg.Kafka, sender, appLogger)
		if err != nil {
			return err
		}
	}

	jobs := bookings.NewJobProcessor(appRouter.Bookings(), &bookings.JobConfig{
		ExpirySweepInterval: cfg.Booking.ExpirySweepInterval,
	}, appLogger)
	jobs.Start(ctx)
	defer jobs.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("inventory_backend", cfg.Booking.InventoryBackend),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if dispatcher != nil {
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newPublisher(cfg *config.Config, appLogger *logger.Logger) (notifications.Publisher, error) {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, booking notifications are dropped")
		return notifications.NoopPublisher{}, nil
	}
	publisher, err := notifications.NewKafkaPublisher(cfg.Kafka, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notification publisher: %w", err)
	}
	return publisher, nil
}

func newTicketSender(cfg *config.Config, appLogger *logger.Logger) (notifications.TicketSender, error) {
	if !cfg.Email.Enabled() {
		appLogger.Info("SMTP not configured, ticket dispatch is logged only")
		return notifications.NewLogTicketSender(appLogger), nil
	}
	sender, err := notifications.NewSMTPTicketSender(cfg.Email, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ticket email sender: %w", err)
	}
	return sender, nil
}

func setupEngine(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}

	appRouter.SetupRoutes(engine)
	return engine
}
