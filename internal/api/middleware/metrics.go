package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gpacalc/gpacalc/internal/observability/metrics"
	"github.com/labstack/echo/v4"
)

// ErrorTypeKey is the echo context key handlers use to tag the error
// category of a failed request.
const ErrorTypeKey = "error_type"

// NewMetrics records request count, latency, size and errors per route
// template. A nil m disables recording.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil {
				status = http.StatusInternalServerError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			m.RecordRequest(method, path, status, time.Since(start), c.Response().Size)
			if status >= http.StatusBadRequest {
				errorType, _ := c.Get(ErrorTypeKey).(string)
				if errorType == "" {
					errorType = http.StatusText(status)
				}
				m.RecordError(method, path, errorType)
			}
			return err
		}
	}
}
