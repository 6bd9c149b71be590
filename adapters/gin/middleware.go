package authgin

import (
	"net/http"
	"time"

	authhttp "github.com/PaulFidika/walletauth/adapters/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestLogger assigns a request id (from X-Request-ID or a new uuid) and
// logs one line per request, at Error for 5xx and Warn for 4xx.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			logger.Error("server error", fields...)
		case status >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Metrics records request counts and latency per gin route.
func Metrics(m *authhttp.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Observe(route, c.Writer.Status(), time.Since(start))
	}
}

// AuthRequired verifies the session token (Bearer or cookie) for host routes
// and stores the claims on both the gin and the request context.
func AuthRequired(v authhttp.TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		gate := authhttp.Required(v, cookieName)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		}))
		gate.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		if cl, ok := authhttp.ClaimsFromContext(c.Request.Context()); ok {
			c.Set(claimsKey, cl)
		}
		c.Next()
	}
}
