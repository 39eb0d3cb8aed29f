package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketbooth/internal/bookings"
	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "verification-secret"

func newAdminRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret

	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth(cfg))
	SetupVerificationRoutes(admin, NewController(f.service))
	return r
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "finance@ticketbooth.test",
		"role": role,
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func request(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestController_VerifyFlow(t *testing.T) {
	f := newFixture(t)
	r := newAdminRouter(t, f)
	token := adminToken(t, middleware.RoleAdmin)
	accepted := f.submitted(t, 1, "TRX200001")
	rejected := f.submitted(t, 1, "TRX200002")

	w := request(r, http.MethodGet, "/api/v1/admin/bookings/awaiting-verification?limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Data bookings.BookingListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Data.TotalCount)

	w = request(r, http.MethodPost, "/api/v1/admin/bookings/"+accepted.ID.String()+"/verify", token, gin.H{"decision": "accept"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"CONFIRMED"`)

	w = request(r, http.MethodPost, "/api/v1/admin/bookings/"+accepted.ID.String()+"/verify", token, gin.H{"decision": "accept"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodPost, "/api/v1/admin/bookings/"+rejected.ID.String()+"/verify", token, gin.H{"decision": "reject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPost, "/api/v1/admin/bookings/"+rejected.ID.String()+"/verify", token,
		gin.H{"decision": "reject", "reason": "amount does not match"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"REJECTED"`)

	w = request(r, http.MethodPost, "/api/v1/admin/bookings/"+rejected.ID.String()+"/verify", token, gin.H{"decision": "accept"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestController_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	r := newAdminRouter(t, f)
	b := f.submitted(t, 1, "TRX300001")
	path := "/api/v1/admin/bookings/" + b.ID.String() + "/verify"

	w := request(r, http.MethodPost, path, "", gin.H{"decision": "accept"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodPost, path, adminToken(t, "USER"), gin.H{"decision": "accept"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, http.MethodPost, path, adminToken(t, middleware.RoleAdmin), gin.H{"decision": "approve"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
