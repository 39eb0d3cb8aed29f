package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticketbooth/internal/discounts"
	"ticketbooth/internal/events"
	"ticketbooth/internal/inventory"
	"ticketbooth/internal/shared/clock"
	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/constants"
	"ticketbooth/internal/shared/database"
	"ticketbooth/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Seeder struct {
	db     *database.DB
	events events.Service
	codes  *discounts.Engine
}

func main() {
	_ = godotenv.Load()
	fmt.Println("Starting ticketbooth seeder...")

	ctx := context.Background()
	cfg := config.Load()
	log.SetFlags(0)

	db, err := database.InitDB(ctx, cfg, logger.GetDefault())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var store inventory.Store = inventory.NewPostgresStore(db.PostgreSQL)
	if cfg.Booking.InventoryBackend == config.InventoryBackendRedis {
		store = inventory.NewRedisStore(db.Redis)
	}
	ledger := inventory.NewLedger(store, nil)

	seeder := &Seeder{
		db:     db,
		events: events.NewService(events.NewRepository(db.PostgreSQL), ledger, nil, nil),
		codes:  discounts.NewEngine(discounts.NewRepository(db.PostgreSQL), clock.System(), nil),
	}

	fmt.Println("Cleaning database...")
	if err := seeder.CleanDatabase(ctx); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("Seeding database...")
	if err := seeder.SeedAll(ctx); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("Seeding completed")
}

// CleanDatabase truncates every table and drops Redis inventory keys
func (s *Seeder) CleanDatabase(ctx context.Context) error {
	err := s.db.PostgreSQL.WithContext(ctx).Exec(`
		TRUNCATE TABLE
			booking_line_items,
			bookings,
			discount_uses,
			discount_code_events,
			discount_codes,
			inventory_reservations,
			inventory_counters,
			ticket_categories,
			events
		CASCADE
	`).Error
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	if s.db.Redis == nil {
		return nil
	}
	iter := s.db.Redis.Scan(ctx, 0, constants.CACHE_PREFIX+":*", 500).Iterator()
	for iter.Next(ctx) {
		if err := s.db.Redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (s *Seeder) SeedAll(ctx context.Context) error {
	now := time.Now().UTC()

	showcase := &events.Event{
		Name:        "Ticketbooth Live: Opening Night",
		Description: "Demo event with general admission and VIP tickets",
		Venue:       "Grand Theatre",
		StartsAt:    now.AddDate(0, 1, 0).Truncate(time.Hour),
		Status:      events.StatusPublished,
		Categories: []events.TicketCategory{
			{ID: "GA", Name: "General Admission", UnitPrice: 2500, TotalCapacity: 500},
			{ID: "VIP", Name: "VIP Lounge", UnitPrice: 10000, TotalCapacity: 50},
		},
	}
	if err := s.events.CreateEvent(ctx, showcase); err != nil {
		return fmt.Errorf("failed to seed event: %w", err)
	}
	fmt.Printf("  event %s (%s)\n", showcase.ID, showcase.Name)

	soldOut := &events.Event{
		Name:     "Intimate Acoustic Set",
		Venue:    "Back Room",
		StartsAt: now.AddDate(0, 0, 10).Truncate(time.Hour),
		Status:   events.StatusPublished,
		Categories: []events.TicketCategory{
			{ID: "GA", Name: "General Admission", UnitPrice: 1500, TotalCapacity: 2},
		},
	}
	if err := s.events.CreateEvent(ctx, soldOut); err != nil {
		return fmt.Errorf("failed to seed event: %w", err)
	}
	fmt.Printf("  event %s (%s)\n", soldOut.ID, soldOut.Name)

	codes := []*discounts.DiscountCode{
		{
			Code:      "SAVE10",
			Type:      discounts.TypePercentage,
			Value:     decimal.NewFromInt(10),
			ValidFrom: now.Add(-time.Hour),
			ValidTill: now.AddDate(0, 3, 0),
			MaxUses:   100,
			Active:    true,
		},
		{
			Code:             "VIPFIVE",
			Type:             discounts.TypeFixed,
			Value:            decimal.NewFromInt(500),
			ValidFrom:        now.Add(-time.Hour),
			ValidTill:        now.AddDate(0, 1, 0),
			MaxUses:          0,
			ApplicableEvents: []discounts.ApplicableEvent{{EventID: showcase.ID}},
			MinTicketCount:   2,
			Active:           true,
		},
	}
	for _, dc := range codes {
		if err := s.codes.CreateCode(ctx, dc); err != nil {
			return fmt.Errorf("failed to seed discount code %s: %w", dc.Code, err)
		}
		fmt.Printf("  discount code %s\n", dc.Code)
	}
	return nil
}
