package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"nigran/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SecurityLogger records auth and connection events with a common prefix.
type SecurityLogger struct{}

func NewSecurityLogger() *SecurityLogger { return &SecurityLogger{} }

func (s *SecurityLogger) LogFailedAuth(ip, reason string) {
	log.Printf("[SECURITY] auth failed from %s: %s", ip, reason)
}

func (s *SecurityLogger) LogTokenIssued(ip, viewer string) {
	log.Printf("[SECURITY] token issued to %s for viewer %q", ip, viewer)
}

func (s *SecurityLogger) LogSessionConnected(ip, viewer string) {
	log.Printf("[SECURITY] session connected from %s, viewer %q", ip, viewer)
}

// Package-level security logger instance
var GlobalSecurityLogger = NewSecurityLogger()

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}

	// 100 requests per second per IP, burst of 200
	limiter := rate.NewLimiter(rate.Limit(100), 200)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			log.Printf("[SECURITY] rate limit exceeded for IP: %s", ip)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// TokenAuthMiddleware validates the session token from the Authorization
// header (Bearer) or the token query parameter.
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			c.Abort()
			return
		}

		claims, err := services.ValidateToken(token)
		if err != nil {
			GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("viewer", claims.ViewerName)
		c.Next()
	}
}
