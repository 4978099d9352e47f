// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Upper bounds for configurable delays.
const (
	maxDebounce    = time.Minute
	maxRevealDelay = 10 * time.Second
)

var storageBackends = []string{BackendFile, BackendSQLite, BackendMySQL, BackendMemory}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. It normalizes the
// storage backend name in place.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if _, err := language.Parse(settings.Locale); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("invalid locale %q", settings.Locale))
	}

	if err := validateStorageSettings(&settings.Storage); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateCalculatorSettings(&settings.Calculator); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateStorageSettings(settings *StorageSettings) error {
	var errs []string

	settings.Backend = strings.ToLower(strings.TrimSpace(settings.Backend))
	if settings.Backend == "" {
		settings.Backend = BackendFile
	}
	if !slices.Contains(storageBackends, settings.Backend) {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of %v, got %q", storageBackends, settings.Backend))
	}
	if settings.Backend == BackendMySQL && settings.DSN == "" {
		errs = append(errs, "storage.dsn is required for the mysql backend")
	}
	if settings.Debounce < 0 || settings.Debounce > maxDebounce {
		errs = append(errs, fmt.Sprintf("storage.debounce must be between 0 and %s, got %s", maxDebounce, settings.Debounce))
	}

	if len(errs) > 0 {
		return fmt.Errorf("storage settings errors: %v", errs)
	}
	return nil
}

func validateCalculatorSettings(settings *CalculatorSettings) error {
	if settings.RevealDelay < 0 || settings.RevealDelay > maxRevealDelay {
		return fmt.Errorf("calculator.revealdelay must be between 0 and %s, got %s", maxRevealDelay, settings.RevealDelay)
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.listen must be host:port, got %q", settings.Listen))
	}
	if settings.RateLimit <= 0 {
		errs = append(errs, "webserver.ratelimit must be positive")
	}
	if settings.Burst < 1 {
		errs = append(errs, "webserver.burst must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("webserver settings errors: %v", errs)
	}
	return nil
}
