package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.Booking.HoldDuration)
	assert.Equal(t, 10, cfg.Booking.MaxTicketsPerOrder)
	assert.Equal(t, InventoryBackendRedis, cfg.Booking.InventoryBackend)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.False(t, cfg.Email.Enabled())
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BOOKING_HOLD_DURATION", "15m")
	t.Setenv("INVENTORY_BACKEND", "Postgres")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("BOOKING_MAX_TICKETS", "not-a-number")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USE_TLS", "false")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldDuration)
	assert.Equal(t, InventoryBackendPostgres, cfg.Booking.InventoryBackend)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Booking.MaxTicketsPerOrder)
	assert.True(t, cfg.Email.Enabled())
	assert.False(t, cfg.Email.UseTLS)
}
