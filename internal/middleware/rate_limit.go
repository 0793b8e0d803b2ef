package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"portfolio-analytics-api/internal/dto"
	apperrors "portfolio-analytics-api/pkg/errors"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	clients  map[string]*clientLimiter
	mu       sync.Mutex
	perMin   int
	burst    int
	idleTTL  time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perMin requests per minute with the
// given burst. Idle clients are forgotten after cleanup.
func NewRateLimiter(perMin, burst int, cleanup time.Duration) *RateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	if burst <= 0 {
		burst = 1
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		perMin:  perMin,
		burst:   burst,
		idleTTL: cleanup,
		stop:    make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// RateLimit returns a gin middleware for rate limiting
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.perMin))

		if !limiter.Allow() {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			appErr := apperrors.ErrRateLimited
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Success:   false,
				Code:      appErr.Code,
				Message:   appErr.Message,
				Retryable: appErr.Retryable,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMin)), rl.burst),
		}
		rl.clients[clientIP] = client
	}
	client.lastSeen = time.Now()
	return client.limiter
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
}
