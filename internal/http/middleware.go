package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rfidlab/smarttray/internal/obs"
)

const ctxKeyRequestID = "request_id"

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// WithRequestID tags every request with an X-Request-Id, generating one when
// the client did not send it.
func WithRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, reqID)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

// WithLogging logs one structured line per request.
func WithLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lat := time.Since(start)
		obs.Logger.Infow("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", float64(lat.Microseconds())/1000.0,
			"request_id", RequestIDFromContext(c),
		)
	}
}

// CORS allows the kiosk UI, served from another origin, to poll the API.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Request-Id")
	return cors.New(cfg)
}
