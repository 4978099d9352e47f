package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/observability/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	limited := 0
	e := echo.New()
	// effectively no refill during the test
	e.Use(NewRateLimiter(0.001, 2, func() { limited++ }))
	e.GET("/x", ok)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x").Code)

	rec := serve(e, http.MethodGet, "/x")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/items/:id", ok)
	e.GET("/fail", func(c echo.Context) error {
		c.Set(ErrorTypeKey, "validation")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad"})
	})

	serve(e, http.MethodGet, "/items/1")
	serve(e, http.MethodGet, "/items/2")
	serve(e, http.MethodGet, "/fail")
	serve(e, http.MethodGet, "/missing")

	// one series per route template and status
	assert.Equal(t, 3, testutil.CollectAndCount(m, "gpacalc_http_requests_total"))
	// /fail tagged validation, /missing falls back to the status text
	assert.Equal(t, 2, testutil.CollectAndCount(m, "gpacalc_http_request_errors_total"))
}

func TestMetricsMiddlewareNil(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewMetrics(nil))
	e.GET("/x", ok)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x").Code)
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := echo.New()
	e.Use(NewRequestLogger(logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)))
	e.GET("/x", ok)

	serve(e, http.MethodGet, "/x?q=1")

	out := buf.String()
	assert.Contains(t, out, "request")
	assert.Contains(t, out, `uri="/x?q=1"`)
	assert.Contains(t, out, "status=200")
}
