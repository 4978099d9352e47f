// Package errors wraps errors with a component, a category and context
// values, and optionally forwards them to a telemetry reporter. It also
// passes through the standard library helpers so callers need one import.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors by cause. Drivers map categories to exit
// codes or HTTP statuses.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"    // rejected user input
	CategoryNotFound      ErrorCategory = "not-found"     // unknown entry id or key
	CategoryFileIO        ErrorCategory = "file-io"       // file backend, config and export files
	CategoryFileParsing   ErrorCategory = "file-parsing"  // unreadable JSON or YAML
	CategoryDatabase      ErrorCategory = "database"      // sqlite and mysql backends
	CategoryConfiguration ErrorCategory = "configuration" // settings, secrets, startup wiring
	CategoryState         ErrorCategory = "state"         // operation not valid in the current state
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is reported when no component was set.
const ComponentUnknown = "unknown"

// EnhancedError is an error with the component it came from, a category
// and free form context.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	component string
	mu        sync.RWMutex
	reported  bool
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, anything else through the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, or ComponentUnknown.
func (ee *EnhancedError) GetComponent() string {
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

// GetCategory returns the category as a string.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context values.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// MarkReported records that telemetry has seen this error.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported reports whether MarkReported was called.
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError.
//
//	return errors.New(err).
//		Component("kvstore").
//		Category(errors.CategoryDatabase).
//		Context("key", key).
//		Build()
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error. %w is honoured.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the package or subsystem the error came from.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the category. Without one Build derives it from err.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context attaches a key/value pair.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build returns the error and hands it to the telemetry reporter, if one
// is installed.
func (eb *ErrorBuilder) Build() *EnhancedError {
	category := eb.category
	if category == "" {
		category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}

	reportToTelemetry(ee)
	return ee
}

// detectCategory takes the category of a wrapped EnhancedError, or guesses
// one from the message.
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	if c, ok := CategoryOf(err); ok {
		return c
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return CategoryNotFound
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "out of range"):
		return CategoryValidation
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "parse"):
		return CategoryFileParsing
	case strings.Contains(msg, "file") || strings.Contains(msg, "open"):
		return CategoryFileIO
	}
	return CategoryGeneric
}

// CategoryOf returns the category of the first EnhancedError in err's chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var ee *EnhancedError
	if As(err, &ee) && ee.Category != "" {
		return ee.Category, true
	}
	return "", false
}

// IsCategory reports whether err carries category.
func IsCategory(err error, category ErrorCategory) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return IsCategory(err, CategoryValidation)
}

// Standard library passthroughs.

func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
