package constants

import (
	"fmt"
	"time"
)

// Redis key layout for Ticketbooth
// Pattern: ticketbooth:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // 2 hours - for event details
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // 15 minutes - for published event lookups
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketbooth"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

const (
	TTL_EVENT_DETAIL = TTL_SEMI_STATIC_QUICK
)

// ================== INVENTORY MODULE ==================

const (
	INVENTORY_COUNTER_PREFIX     = CACHE_PREFIX + ":inventory:counter:"     // + event-id:category-id
	INVENTORY_RESERVATION_PREFIX = CACHE_PREFIX + ":inventory:reservation:" // + token-id
)

// ================== RATE LIMIT MODULE ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== KEY BUILDERS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildInventoryCounterKey(eventID, categoryID string) string {
	return fmt.Sprintf("%s%s:%s", INVENTORY_COUNTER_PREFIX, eventID, categoryID)
}

func BuildInventoryReservationKey(tokenID string) string {
	return INVENTORY_RESERVATION_PREFIX + tokenID
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s%s:%s", RATE_LIMIT_PREFIX, clientIP, limitType)
}
