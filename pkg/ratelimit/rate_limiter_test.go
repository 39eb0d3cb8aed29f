package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"ticketbooth/internal/shared/clock"
	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/constants"
	"ticketbooth/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 60,
		PublicRequests:  100,
		BookingRequests: 20,
		AdminRequests:   200,
		HealthRequests:  300,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
}

func expectCheck(mock redismock.ClientMock, ip string, limitType RateLimitType, limit int) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(slidingWindowScript.Hash(),
		[]string{constants.BuildRateLimitKey(ip, string(limitType))},
		testNow.Add(-time.Minute).UnixMilli(),
		testNow.UnixMilli(),
		limit,
		60,
		strconv.FormatInt(testNow.UnixNano(), 10),
	)
}

func TestRateLimiter_IsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		reply     []interface{}
		allowed   bool
		remaining int
	}{
		{"within window", []interface{}{int64(1), int64(19)}, true, 19},
		{"last request", []interface{}{int64(1), int64(0)}, true, 0},
		{"over the limit", []interface{}{int64(0), int64(0)}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			limiter := NewRateLimiter(client, testConfig(), clock.NewFake(testNow))
			expectCheck(mock, "192.0.2.7", RateLimitTypeBooking, 20).SetVal(tt.reply)

			result, err := limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypeBooking)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, result.Allowed)
			assert.Equal(t, 20, result.Limit)
			assert.Equal(t, tt.remaining, result.Remaining)
			assert.Equal(t, testNow.Add(time.Minute).Unix(), result.ResetTime)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRateLimiter_BypassesRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()

	limiter := NewRateLimiter(client, testConfig(), clock.NewFake(testNow))
	result, err := limiter.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeAdmin)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 200, result.Limit)

	cfg := testConfig()
	cfg.Enabled = false
	limiter = NewRateLimiter(client, cfg, clock.NewFake(testNow))
	result, err = limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypePublic)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRateLimitType(t *testing.T) {
	tests := map[string]RateLimitType{
		"/health":                                RateLimitTypeHealth,
		"/metrics":                               RateLimitTypeHealth,
		"/api/v1/admin/bookings/:id/verify":      RateLimitTypeAdmin,
		"/api/v1/admin/events":                   RateLimitTypeAdmin,
		"/api/v1/bookings":                       RateLimitTypeBooking,
		"/api/v1/bookings/:id/payment-reference": RateLimitTypeBooking,
		"/api/v1/discounts/quote":                RateLimitTypeBooking,
		"/api/v1/events/:id":                     RateLimitTypePublic,
		"":                                       RateLimitTypeDefault,
	}
	for path, want := range tests {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func newLimitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(limiter, logger.Discard()))
	r.POST("/api/v1/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestMiddleware(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := newLimitedRouter(NewRateLimiter(client, testConfig(), clock.NewFake(testNow)))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.1.1.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	expectCheck(mock, "192.0.2.7", RateLimitTypeBooking, 20).SetVal([]interface{}{int64(1), int64(4)})
	w := serve()
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	expectCheck(mock, "192.0.2.7", RateLimitTypeBooking, 20).SetVal([]interface{}{int64(0), int64(0)})
	w = serve()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	expectCheck(mock, "192.0.2.7", RateLimitTypeBooking, 20).SetErr(errors.New("dial tcp: connection refused"))
	w = serve()
	assert.Equal(t, http.StatusCreated, w.Code, "redis outage must not block bookings")

	assert.NoError(t, mock.ExpectationsWereMet())
}
