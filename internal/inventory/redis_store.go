package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// settledRetention keeps finalized and released reservation hashes around so
// that repeated finalize/release calls stay no-ops.
const settledRetention = 30 * 24 * time.Hour

// Lua script for atomic reservation - the check and decrement run as one step
const luaReserve = `
-- KEYS[1] = counter key
-- KEYS[2] = reservation key
-- ARGV[1] = quantity
-- ARGV[2] = event_id
-- ARGV[3] = category_id

if redis.call("EXISTS", KEYS[1]) == 0 then
    return {0, "counter_not_found", 0}
end
if redis.call("EXISTS", KEYS[2]) == 1 then
    return {0, "duplicate_token", 0}
end

local qty = tonumber(ARGV[1])
local available = tonumber(redis.call("HGET", KEYS[1], "available"))
if available < qty then
    return {0, "insufficient", available}
end

redis.call("HINCRBY", KEYS[1], "available", -qty)
redis.call("HINCRBY", KEYS[1], "reserved", qty)
redis.call("HSET", KEYS[2],
    "counter", KEYS[1],
    "event_id", ARGV[2],
    "category_id", ARGV[3],
    "quantity", qty,
    "state", "HELD"
)

return {1, "ok", available - qty}
`

// Lua script for settling a held reservation as FINALIZED or RELEASED
const luaSettle = `
-- KEYS[1] = reservation key
-- KEYS[2] = counter key
-- ARGV[1] = target state
-- ARGV[2] = retention seconds

local state = redis.call("HGET", KEYS[1], "state")
if not state then
    return {0, "reservation_not_found"}
end
if state == ARGV[1] then
    return {1, "noop"}
end
if state ~= "HELD" then
    return {0, state}
end

if redis.call("HGET", KEYS[1], "counter") ~= KEYS[2] then
    return {0, "counter_mismatch"}
end
local qty = tonumber(redis.call("HGET", KEYS[1], "quantity"))

redis.call("HINCRBY", KEYS[2], "reserved", -qty)
if ARGV[1] == "FINALIZED" then
    redis.call("HINCRBY", KEYS[2], "sold", qty)
else
    redis.call("HINCRBY", KEYS[2], "available", qty)
end

redis.call("HSET", KEYS[1], "state", ARGV[1])
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))

return {1, "ok"}
`

// Lua script for creating a counter only when it does not exist yet
const luaProvision = `
-- KEYS[1] = counter key
-- ARGV[1] = capacity

if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1],
    "total", ARGV[1],
    "available", ARGV[1],
    "reserved", 0,
    "sold", 0
)
return 1
`

var (
	reserveScript   = redis.NewScript(luaReserve)
	settleScript    = redis.NewScript(luaSettle)
	provisionScript = redis.NewScript(luaProvision)
)

// RedisStore keeps counters as Redis hashes and mutates them only through Lua scripts
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) Provision(ctx context.Context, eventID uuid.UUID, categoryID string, capacity int) (bool, error) {
	key := constants.BuildInventoryCounterKey(eventID.String(), categoryID)
	created, err := provisionScript.Run(ctx, s.redis, []string{key}, capacity).Int64()
	if err != nil {
		return false, apperrors.Internal(err, "failed to provision inventory")
	}
	return created == 1, nil
}

func (s *RedisStore) Reserve(ctx context.Context, token ReservationToken) error {
	keys := []string{
		constants.BuildInventoryCounterKey(token.EventID.String(), token.CategoryID),
		constants.BuildInventoryReservationKey(token.ID.String()),
	}
	result, err := reserveScript.Run(ctx, s.redis, keys, token.Quantity, token.EventID.String(), token.CategoryID).Slice()
	if err != nil {
		return apperrors.Internal(err, "failed to execute atomic reserve")
	}
	if len(result) != 3 {
		return apperrors.Internal(nil, "unexpected result format from reserve script")
	}

	success, _ := result[0].(int64)
	if success == 1 {
		return nil
	}

	reason, _ := result[1].(string)
	switch reason {
	case "counter_not_found":
		return counterNotFound(token.EventID, token.CategoryID)
	case "insufficient":
		available, _ := result[2].(int64)
		return insufficient(token.CategoryID, int(available))
	default:
		return apperrors.Internal(nil, "reserve rejected: %s", reason)
	}
}

func (s *RedisStore) Finalize(ctx context.Context, token ReservationToken) error {
	return s.settle(ctx, token, StateFinalized)
}

func (s *RedisStore) Release(ctx context.Context, token ReservationToken) error {
	return s.settle(ctx, token, StateReleased)
}

func (s *RedisStore) settle(ctx context.Context, token ReservationToken, target ReservationState) error {
	tokenID := token.ID
	keys := []string{
		constants.BuildInventoryReservationKey(tokenID.String()),
		constants.BuildInventoryCounterKey(token.EventID.String(), token.CategoryID),
	}
	result, err := settleScript.Run(ctx, s.redis, keys, string(target), int(settledRetention.Seconds())).Slice()
	if err != nil {
		return apperrors.Internal(err, "failed to execute atomic %s", opName(target))
	}
	if len(result) != 2 {
		return apperrors.Internal(nil, "unexpected result format from settle script")
	}

	success, _ := result[0].(int64)
	if success == 1 {
		return nil
	}

	reason, _ := result[1].(string)
	switch ReservationState(reason) {
	case StateFinalized, StateReleased:
		return conflictingState(tokenID, ReservationState(reason), opName(target))
	}
	switch reason {
	case "reservation_not_found":
		return reservationNotFound(tokenID)
	case "counter_mismatch":
		return apperrors.InvalidState("reservation %s does not belong to %s/%s", tokenID, token.EventID, token.CategoryID)
	}
	return apperrors.Internal(nil, "%s rejected: %s", opName(target), reason)
}

func (s *RedisStore) Snapshot(ctx context.Context, eventID uuid.UUID, categoryID string) (*Snapshot, error) {
	key := constants.BuildInventoryCounterKey(eventID.String(), categoryID)
	values, err := s.redis.HMGet(ctx, key, "total", "available", "reserved", "sold").Result()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read inventory counter")
	}
	if values[0] == nil {
		return nil, counterNotFound(eventID, categoryID)
	}

	fields := make([]int, len(values))
	for i, v := range values {
		str, _ := v.(string)
		n, err := strconv.Atoi(str)
		if err != nil {
			return nil, apperrors.Internal(err, "corrupt inventory counter %s", key)
		}
		fields[i] = n
	}

	return &Snapshot{
		EventID:       eventID,
		CategoryID:    categoryID,
		TotalCapacity: fields[0],
		Available:     fields[1],
		Reserved:      fields[2],
		Sold:          fields[3],
	}, nil
}

// PreloadScripts loads Lua scripts into Redis so the first calls hit EVALSHA
func (s *RedisStore) PreloadScripts(ctx context.Context) error {
	for name, script := range map[string]*redis.Script{
		"reserve":   reserveScript,
		"settle":    settleScript,
		"provision": provisionScript,
	} {
		if err := script.Load(ctx, s.redis).Err(); err != nil {
			return fmt.Errorf("failed to load %s script: %w", name, err)
		}
	}
	return nil
}
