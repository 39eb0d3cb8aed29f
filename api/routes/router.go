package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ticketbooth/internal/bookings"
	"ticketbooth/internal/discounts"
	"ticketbooth/internal/events"
	"ticketbooth/internal/inventory"
	"ticketbooth/internal/notifications"
	"ticketbooth/internal/shared/clock"
	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/database"
	"ticketbooth/internal/shared/middleware"
	"ticketbooth/internal/verification"
	"ticketbooth/pkg/cache"
	"ticketbooth/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the services once and wires them to HTTP routes
type Router struct {
	config *config.Config
	db     *database.DB
	log    *logger.Logger

	ledger       *inventory.Ledger
	eventService events.Service
	engine       *discounts.Engine
	bookings     bookings.Service
	verification *verification.Service
}

// NewRouter wires the booking core. The inventory backend follows cfg.Booking.InventoryBackend.
func NewRouter(ctx context.Context, cfg *config.Config, db *database.DB, publisher notifications.Publisher, log *logger.Logger) (*Router, error) {
	log = logger.OrDefault(log)
	clk := clock.System()

	store, err := newInventoryStore(ctx, cfg, db, log)
	if err != nil {
		return nil, err
	}
	ledger := inventory.NewLedger(store, log)

	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis, log)
	}
	eventService := events.NewService(events.NewRepository(db.PostgreSQL), ledger, cacheService, log)
	engine := discounts.NewEngine(discounts.NewRepository(db.PostgreSQL), clk, log)

	bookingService := bookings.NewService(
		bookings.NewRepository(db.PostgreSQL),
		eventService,
		ledger,
		engine,
		publisher,
		clk,
		bookings.Options{
			HoldDuration:       cfg.Booking.HoldDuration,
			MaxTicketsPerOrder: cfg.Booking.MaxTicketsPerOrder,
			ExpiryBatchSize:    cfg.Booking.ExpiryBatchSize,
		},
		log,
	)

	return &Router{
		config:       cfg,
		db:           db,
		log:          log,
		ledger:       ledger,
		eventService: eventService,
		engine:       engine,
		bookings:     bookingService,
		verification: verification.NewService(bookingService, log),
	}, nil
}

func newInventoryStore(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (inventory.Store, error) {
	switch cfg.Booking.InventoryBackend {
	case config.InventoryBackendPostgres:
		return inventory.NewPostgresStore(db.PostgreSQL), nil
	case config.InventoryBackendRedis:
		if db.Redis == nil {
			return nil, fmt.Errorf("inventory backend %q needs a redis connection", cfg.Booking.InventoryBackend)
		}
		store := inventory.NewRedisStore(db.Redis)
		preloadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.PreloadScripts(preloadCtx); err != nil {
			// scripts load lazily on first use
			log.WithError(err).Warn("failed to preload inventory scripts")
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown inventory backend %q", cfg.Booking.InventoryBackend)
	}
}

// Bookings exposes the state machine for the background expiry job
func (r *Router) Bookings() bookings.Service {
	return r.bookings
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(r.config))

	events.SetupEventRoutes(api, admin, events.NewController(r.eventService, r.ledger))
	discounts.SetupDiscountRoutes(api, admin, discounts.NewController(r.engine))
	bookings.SetupBookingRoutes(api, bookings.NewController(r.bookings))
	verification.SetupVerificationRoutes(admin, verification.NewController(r.verification))
}

func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketbooth",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketbooth",
		})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
