package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"planet/internal/logger"
	"planet/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Ctx key and helpers for the resolved holder identity.
// Using unexported type to avoid collisions.

type ctxKey string

const holderIDKey ctxKey = "holder_id"

// HolderHeader carries the identity resolved by the external auth layer.
const HolderHeader = "X-Holder-ID"

func ContextWithHolderID(ctx context.Context, holderID string) context.Context {
	return context.WithValue(ctx, holderIDKey, holderID)
}

func HolderIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(holderIDKey).(string)
	return id, ok && id != ""
}

// CORS handles cross-origin requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HolderHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// RequestID attaches a request id to the context for log enrichment.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = logger.NewRequestID()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// Logger emits one structured line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if holderID, ok := HolderIDFromContext(c.Request.Context()); ok {
			logFields = append(logFields, "holder_id", holderID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			logger.WithContext(c.Request.Context()).Error("Request completed with error", logFields...)
		} else {
			logger.WithContext(c.Request.Context()).Info("Request completed", logFields...)
		}
	}
}

// Recovery logs panics with request detail before answering 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "Internal server error",
			})
		}
	})
}

// Metrics records request latency per route and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// HolderIdentity requires the resolved identity header on identity-scoped
// routes. Authentication itself happens upstream; the core only needs the
// resulting identity string.
func HolderIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		holderID := c.GetHeader(HolderHeader)
		if holderID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing " + HolderHeader + " header"})
			return
		}

		c.Set("holder_id", holderID)
		c.Request = c.Request.WithContext(ContextWithHolderID(c.Request.Context(), holderID))

		c.Next()
	}
}
