package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imgvault/imgvault/adapters/jwt"
	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/metrics"
)

const (
	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// RequestIDMiddleware attaches a unique request id to the context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, uuid.NewString())
		c.Next()
	}
}

// RequestLogger logs one line per request with status and latency.
func RequestLogger(logger *log.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		logger.Info("request",
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.Int("status", c.Writer.Status()),
			log.Duration("latency", time.Since(startTime)),
			log.String("client_ip", c.ClientIP()),
			log.String(requestIDKey, c.GetString(requestIDKey)),
		)
	}
}

// AuthMiddleware verifies the bearer token and scopes the request to its
// user id.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing bearer token"))
			return
		}

		claims, err := jwt.Validate(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// MetricsMiddleware records request count, latency and in-flight gauge.
func MetricsMiddleware(mc *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		mc.RequestsInFlight().Inc()
		defer mc.RequestsInFlight().Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		mc.RequestCount().WithLabelValues(mc.ServiceName(), c.Request.Method, path, status).Inc()
		mc.RequestDuration().WithLabelValues(mc.ServiceName(), c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
