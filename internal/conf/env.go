// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly bound environment variables. Other
// keys are still reachable through AutomaticEnv as GPACALC_<KEY>.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "GPACALC_DEBUG", validateEnvBool},
		{"locale", "GPACALC_LOCALE", validateEnvLocale},

		{"storage.backend", "GPACALC_STORAGE_BACKEND", validateEnvBackend},
		{"storage.path", "GPACALC_STORAGE_PATH", nil},
		{"storage.dsn", "GPACALC_STORAGE_DSN", nil},
		{"storage.dsnfile", "GPACALC_STORAGE_DSN_FILE", nil},
		{"storage.debounce", "GPACALC_STORAGE_DEBOUNCE", validateEnvDuration},

		{"calculator.revealdelay", "GPACALC_REVEAL_DELAY", validateEnvDuration},

		{"logging.default_level", "GPACALC_LOG_LEVEL", nil},

		{"webserver.listen", "GPACALC_LISTEN", nil},
		{"metrics.enabled", "GPACALC_METRICS_ENABLED", validateEnvBool},

		{"sentry.enabled", "GPACALC_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "GPACALC_SENTRY_DSN", nil},
		{"sentry.dsnfile", "GPACALC_SENTRY_DSN_FILE", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvLocale(value string) error {
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("locale must be a BCP 47 tag such as 'en' or 'en-US', got '%s'", value)
	}
	return nil
}

func validateEnvBackend(value string) error {
	if !slices.Contains(storageBackends, strings.ToLower(value)) {
		return fmt.Errorf("backend must be one of %v, got '%s'", storageBackends, value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %s", value)
	}
	return nil
}
