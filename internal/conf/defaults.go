package conf

import (
	"time"

	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/spf13/viper"
)

// Storage backend names accepted in storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// Default values shared by defaults.go and validation.
const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultRevealDelay = 500 * time.Millisecond
	DefaultListen      = "127.0.0.1:8080"
	DefaultRateLimit   = 20.0
	DefaultBurst       = 40
)

// setDefaultConfig registers default values for every configuration key.
// Keys without a default are not picked up by AutomaticEnv.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("locale", "en")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.dsnfile", "")
	v.SetDefault("storage.debounce", DefaultDebounce)

	v.SetDefault("calculator.revealdelay", DefaultRevealDelay)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "warn")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("webserver.listen", DefaultListen)
	v.SetDefault("webserver.ratelimit", DefaultRateLimit)
	v.SetDefault("webserver.burst", DefaultBurst)

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.dsnfile", "")
	v.SetDefault("sentry.environment", "production")
}
