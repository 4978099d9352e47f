// Package conf provides configuration management for gpacalc.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "GPACALC"

// Settings contains all configuration options for gpacalc.
type Settings struct {
	Debug  bool   `yaml:"debug"`  // true to enable debug logging
	Locale string `yaml:"locale"` // display locale for formatted numbers

	Storage    StorageSettings      `yaml:"storage"`
	Calculator CalculatorSettings   `yaml:"calculator"`
	Logging    logger.LoggingConfig `yaml:"logging"`
	WebServer  WebServerSettings    `yaml:"webserver"`
	Metrics    MetricsSettings      `yaml:"metrics"`
	Sentry     SentrySettings       `yaml:"sentry"`
}

// StorageSettings selects and configures the persistent key-value backend.
type StorageSettings struct {
	Backend  string        `yaml:"backend"`  // file, sqlite, mysql or memory
	Path     string        `yaml:"path"`     // directory for file, database file for sqlite
	DSN      string        `yaml:"dsn"`      // mysql connection string, ${VAR} references expanded
	DSNFile  string        `yaml:"dsnfile"`  // file holding the dsn, wins over DSN
	Debounce time.Duration `yaml:"debounce"` // write-behind delay
}

// CalculatorSettings contains presentation options for computed results.
type CalculatorSettings struct {
	RevealDelay time.Duration `yaml:"revealdelay"` // pause before a result is printed
}

// WebServerSettings contains settings for the JSON API server.
type WebServerSettings struct {
	Listen    string  `yaml:"listen"`    // listen address, host:port
	RateLimit float64 `yaml:"ratelimit"` // requests per second per process
	Burst     int     `yaml:"burst"`     // rate limiter burst size
}

// MetricsSettings toggles the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

// SentrySettings contains error telemetry settings.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	DSNFile     string `yaml:"dsnfile"`
	Environment string `yaml:"environment"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file, an optional .env file and
// environment variables, in increasing order of precedence. An empty
// configFile searches the default config paths; a missing file is not an
// error.
func Load(configFile string) (*Settings, error) {
	v, err := initViper(configFile)
	if err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// initViper builds a viper instance with defaults, file and environment
// sources applied.
func initViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadDotEnv(); err != nil {
		GetLogger().Warn("Failed to load .env file", logger.Error(err))
	}
	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("No config file found, using defaults")
			return v, nil
		}
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Context("config_file", configFile).
			Build()
	}

	GetLogger().Debug("Loaded config file", logger.String("path", v.ConfigFileUsed()))
	return v, nil
}

// loadDotEnv loads .env from the working directory when present. Values
// already set in the environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load(".env")
}

// GetSettings returns the most recently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfig returns the commented default configuration file.
func DefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// CreateDefaultConfig writes the default configuration to configPath. An
// existing file is only replaced when overwrite is set.
func CreateDefaultConfig(configPath string, overwrite bool) error {
	if _, err := os.Stat(configPath); err == nil && !overwrite {
		return errors.Newf("config file already exists: %s", configPath).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	data, err := DefaultConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-dir").
			Build()
	}
	return writeFileAtomic(configPath, data)
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeFileAtomic(configPath, yamlData)
}

// writeFileAtomic writes data through a temporary file in the target
// directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName) //nolint:errcheck // already renamed on success

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// resolveSecrets replaces the DSN settings with their resolved values.
func resolveSecrets(settings *Settings) error {
	dsn, err := secrets.Resolve(settings.Storage.DSNFile, settings.Storage.DSN)
	if err != nil {
		return err
	}
	settings.Storage.DSN = dsn

	dsn, err = secrets.Resolve(settings.Sentry.DSNFile, settings.Sentry.DSN)
	if err != nil {
		return err
	}
	settings.Sentry.DSN = dsn
	return nil
}
