package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// NewRateLimiter rejects requests above limit per second, shared by all
// clients of the process, with 429 Too Many Requests. onLimited, if set,
// is called for each rejected request.
func NewRateLimiter(limit float64, burst int, onLimited func()) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				if onLimited != nil {
					onLimited()
				}
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
