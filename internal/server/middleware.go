package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/onboard/internal/ratelimit"
)

const maxSignupBodyBytes = 64 << 10

// LimitBody caps the request body size. Reads past the limit fail, which
// the JSON binder reports as an invalid request.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// RateLimit throttles by client IP. A nil limiter lets everything through.
func RateLimit(limiter *ratelimit.SignupLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := limiter.Allow(c.Request.Context(), c.ClientIP())
		if res.Allowed {
			c.Next()
			return
		}
		if res.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		}
		AbortWithError(c, ErrRateLimited)
	}
}
