package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var errTooManyRequests = errors.New("too many requests, slow down")

// RateLimitMiddleware rejects requests beyond the token bucket with 429.
// A non-positive limit disables throttling.
func RateLimitMiddleware(limit float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	var limiter *rate.Limiter
	if limit <= 0 {
		limiter = rate.NewLimiter(rate.Inf, burst)
	} else {
		limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	return func(c *gin.Context) {
		if !limiter.Allow() {
			FailWithStatus(c, http.StatusTooManyRequests, errTooManyRequests, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
