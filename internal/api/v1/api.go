// Package api implements the version 1 JSON endpoints of gpacalc under
// /api/v1. Handlers are thin drivers over store.Store and the calc package.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gpacalc/gpacalc/internal/api/middleware"
	"github.com/gpacalc/gpacalc/internal/buildinfo"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/labstack/echo/v4"
)

// Prefix is the route prefix of this API version.
const Prefix = "/api/v1"

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group
	Store *store.Store

	logger    logger.Logger
	startTime time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a controller and registers its routes on e.
func New(e *echo.Echo, st *store.Store, opts ...Option) (*Controller, error) {
	if st == nil {
		return nil, errors.Newf("store cannot be nil").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:      e,
		Group:     e.Group(Prefix),
		Store:     st,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Global().Module("api")
	}

	c.initRoutes()
	return c, nil
}

// initRoutes registers all API routes.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/grades", c.GetGrades)

	c.initSubjectRoutes()
	c.initSemesterRoutes()
	c.initResultRoutes()
}

// HealthCheck reports liveness and uptime.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        buildinfo.Current().GetVersion(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err and writes it as an ErrorResponse. A zero code is
// derived from the error category.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if code == 0 {
		code = statusForError(err)
	}
	errorResp := NewErrorResponse(err, message, code)
	ctx.Set(middleware.ErrorTypeKey, errorType(err, code))

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := c.logger.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Debug("API error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// statusForError maps an error category to an HTTP status.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorType returns the category label recorded in request metrics.
func errorType(err error, code int) string {
	if c, ok := errors.CategoryOf(err); ok {
		return string(c)
	}
	return http.StatusText(code)
}

// parseID reads the :id path parameter.
func parseID(ctx echo.Context) (int, error) {
	raw := ctx.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.Newf("invalid id %q", raw).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return id, nil
}

// notFound builds the error for a missing entry.
func notFound(kind string, id int) error {
	return errors.Newf("%s %d not found", kind, id).
		Component("api").
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}
