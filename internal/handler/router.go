package handler

import (
	"bytes"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/config"
	"github.com/Kenkkila/grimoire-site/internal/controller"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// SetupRouter wires the graph API. /metrics sits outside /api/v1 and is not rate limited.
func SetupRouter(graphController *controller.GraphController, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(cfg.App.DebugHTTP, logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if cfg.App.RateLimit > 0 {
		v1.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.App.RateLimit), cfg.App.RateBurst), logger))
	}
	{
		v1.GET("/health", graphController.Health)

		v1.GET("/labels", graphController.GetLabels)
		v1.GET("/labels/entities", graphController.GetEntityLabels)
		v1.GET("/random", graphController.Random)
		v1.GET("/frontpage", graphController.FrontPage)
		v1.GET("/timeline", graphController.Timeline)
		v1.GET("/search", graphController.Search)
		v1.GET("/with/:param", graphController.WithParam)
		v1.GET("/outcomes/spells", graphController.SpellsByOutcome)
		v1.GET("/grimoires/entities/:entity", graphController.GrimoireEntities)

		// label routes last: their first segment is a wildcard
		v1.GET("/:label", graphController.ListLabel)
		v1.GET("/:label/filter", graphController.Filter)
		v1.GET("/:label/:uid", graphController.Item)
	}

	return router
}

// RequestIDMiddleware tags every request with an id, reusing the caller's X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RateLimitMiddleware applies one token bucket to every request of the group.
// Returns 429 when the limiter is exhausted.
func RateLimitMiddleware(limiter *rate.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			logger.Warn("Rate limit exceeded",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func LoggerMiddleware(debugHTTP bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		var responseBody *bytes.Buffer

		if debugHTTP {
			// Read request body for debug logging
			if c.Request.Body != nil {
				requestBody, _ = io.ReadAll(c.Request.Body)
				// Restore the body for the handler
				c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			}

			// Log request with body
			requestFields := []zap.Field{
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			}
			if len(requestBody) > 0 && len(requestBody) <= 10000 {
				requestFields = append(requestFields, zap.String("request_body", string(requestBody)))
			} else if len(requestBody) > 10000 {
				requestFields = append(requestFields, zap.String("request_body", string(requestBody[:10000])+"... (truncated)"))
			}
			logger.Info("HTTP Request", requestFields...)

			// Wrap response writer to capture response body
			responseBody = &bytes.Buffer{}
			writer := &responseWriter{
				ResponseWriter: c.Writer,
				body:           responseBody,
			}
			c.Writer = writer
		} else {
			// Basic request logging without body
			logger.Info("HTTP Request",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
		}

		// Process request
		c.Next()

		// Calculate duration
		duration := time.Since(start)

		if debugHTTP {
			// Log response with body
			responseFields := []zap.Field{
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", duration),
			}
			if responseBody != nil && responseBody.Len() > 0 && responseBody.Len() <= 10000 {
				responseFields = append(responseFields, zap.String("response_body", responseBody.String()))
			} else if responseBody != nil && responseBody.Len() > 10000 {
				responseFields = append(responseFields, zap.String("response_body", responseBody.String()[:10000]+"... (truncated)"))
			}
			logger.Info("HTTP Response", responseFields...)
		} else {
			// Basic response logging without body
			logger.Info("HTTP Response",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", duration),
			)
		}
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
