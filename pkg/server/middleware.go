package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, reusing one the client sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the id RequestID assigned to c.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}

// Logger logs one line per request, at warn for 4xx and error for 5xx.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// RateLimit is a per-client token bucket limiter.
type RateLimit struct {
	limit   rate.Limit
	burst   int
	metrics *Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxTrackedClients bounds the limiter map; idle clients are swept past it.
const maxTrackedClients = 10000

// NewRateLimit allows perSecond sustained requests per client IP with the
// given burst.
func NewRateLimit(perSecond float64, burst int, metrics *Metrics, logger *zap.Logger) *RateLimit {
	return &RateLimit{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		metrics: metrics,
		logger:  logger,
		clients: make(map[string]*clientLimiter),
	}
}

// Middleware rejects requests over the limit with 429.
func (m *RateLimit) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.allow(c.ClientIP()) {
			c.Next()
			return
		}

		m.metrics.rateLimited.Inc()
		m.logger.Warn("rate limit exceeded",
			zap.String("request_id", GetRequestID(c)),
			zap.String("client_ip", c.ClientIP()),
		)
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("RATE_LIMIT_EXCEEDED", "request rate limit exceeded"))
	}
}

func (m *RateLimit) allow(client string) bool {
	now := time.Now()

	m.mu.Lock()
	cl, ok := m.clients[client]
	if !ok {
		if len(m.clients) >= maxTrackedClients {
			m.sweep(now.Add(-10 * time.Minute))
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[client] = cl
	}
	cl.lastSeen = now
	m.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// sweep drops clients idle since before cutoff. Callers hold m.mu.
func (m *RateLimit) sweep(cutoff time.Time) {
	for id, cl := range m.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(m.clients, id)
		}
	}
}

func errorBody(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
