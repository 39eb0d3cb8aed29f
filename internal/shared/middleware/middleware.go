package middleware

import (
	"net/http"
	"strings"
	"time"

	"ticketbooth/internal/shared/config"
	"ticketbooth/internal/shared/utils/response"
	"ticketbooth/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "ADMIN"

	ContextAdminID   = "admin_id"
	ContextRequestID = "request_id"

	HeaderRequestID = "X-Request-ID"
)

// AdminAuth verifies an externally issued access token and requires the ADMIN role
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token claims", nil, nil)
			c.Abort()
			return
		}
		if tokenType, _ := claims["type"].(string); tokenType != "access" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token type", nil, nil)
			c.Abort()
			return
		}
		if role, _ := claims["role"].(string); role != RoleAdmin {
			response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
			c.Abort()
			return
		}

		adminID, _ := claims["sub"].(string)
		if adminID == "" {
			adminID, _ = claims["email"].(string)
		}
		if adminID == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "token has no subject", nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextAdminID, adminID)
		c.Next()
	}
}

// AdminID returns the verified admin identity set by AdminAuth
func AdminID(c *gin.Context) string {
	return c.GetString(ContextAdminID)
}

// RequestID propagates or assigns a request id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// RequestLogger logs every request once it completes
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = logger.OrDefault(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := log.WithRequestID(c.GetString(ContextRequestID))
		if len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError {
			l.LogHTTPError(c, c.Errors.Last().Err, c.Writer.Status())
			return
		}
		l.LogHTTPRequest(c, time.Since(start))
	}
}
