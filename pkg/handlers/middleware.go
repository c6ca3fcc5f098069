package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/models"
)

// DefaultRateLimit is the daily request limit given to new API keys
const DefaultRateLimit = 10000

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Failure("authorization header required"))
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Failure("invalid token"))
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies HMAC API keys on the roster routes. A request
// without a key is let through unless RequireAPIKey is set; a key that is
// present is always verified so its usage can be tracked.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			if h.RequireAPIKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, models.Failure("API key required"))
				return
			}
			c.Next()
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Failure("invalid API key signature"))
			return
		}
		c.Set("userID", userID)

		if h.DB == nil {
			c.Next()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		if err := h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:        key,
			Name:       userID,
			KeyPreview: auth.KeyPreview(key),
			RateLimit:  DefaultRateLimit,
		}).Error; err != nil {
			h.logger().Error("failed to load api key", zap.String("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.Failure("could not verify API key"))
			return
		}

		if apiKey.RateLimit > 0 {
			var usage database.APIUsage
			today := time.Now().Format("2006-01-02")
			err := h.DB.Where("key_id = ? AND date = ?", apiKey.ID, today).Limit(1).Find(&usage).Error
			if err == nil && usage.RequestCount >= apiKey.RateLimit {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, models.Failure("daily request limit reached"))
				return
			}
		}

		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Next()
	}
}

// RequestLogger logs one structured entry per request
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := c.GetString("userID"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch {
		case status >= http.StatusInternalServerError:
			h.logger().Error("request", fields...)
		case status >= http.StatusBadRequest:
			h.logger().Warn("request", fields...)
		default:
			h.logger().Info("request", fields...)
		}
	}
}
