package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to config.yaml in a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	settings, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	require.NoError(t, ValidateSettings(settings))

	assert.False(t, settings.Debug)
	assert.Equal(t, "en", settings.Locale)
	assert.Equal(t, BackendFile, settings.Storage.Backend)
	assert.Equal(t, DefaultDebounce, settings.Storage.Debounce)
	assert.Equal(t, DefaultRevealDelay, settings.Calculator.RevealDelay)
	assert.Equal(t, DefaultListen, settings.WebServer.Listen)
	assert.InDelta(t, DefaultRateLimit, settings.WebServer.RateLimit, 1e-9)
	assert.Equal(t, DefaultBurst, settings.WebServer.Burst)
	assert.False(t, settings.Metrics.Enabled)
	assert.False(t, settings.Sentry.Enabled)

	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Equal(t, "warn", settings.Logging.Console.Level)
	require.NotNil(t, settings.Logging.FileOutput)
	assert.False(t, settings.Logging.FileOutput.Enabled)

	assert.Same(t, settings, GetSettings())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
locale: de
storage:
  backend: SQLite
  path: /tmp/gpa.db
  debounce: 1s
calculator:
  revealdelay: 0s
webserver:
  listen: 0.0.0.0:9000
metrics:
  enabled: true
logging:
  module_levels:
    store: debug
`)
	settings, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, ValidateSettings(settings))

	assert.True(t, settings.Debug)
	assert.Equal(t, "de", settings.Locale)
	assert.Equal(t, BackendSQLite, settings.Storage.Backend, "backend name is normalized")
	assert.Equal(t, "/tmp/gpa.db", settings.Storage.Path)
	assert.Equal(t, time.Second, settings.Storage.Debounce)
	assert.Zero(t, settings.Calculator.RevealDelay)
	assert.Equal(t, "0.0.0.0:9000", settings.WebServer.Listen)
	assert.True(t, settings.Metrics.Enabled)
	assert.Equal(t, map[string]string{"store": "debug"}, settings.Logging.ModuleLevels)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: [unterminated\n"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "an explicit config file must exist")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GPACALC_STORAGE_BACKEND", "memory")
	t.Setenv("GPACALC_REVEAL_DELAY", "50ms")
	t.Setenv("GPACALC_WEBSERVER_BURST", "5")

	path := writeConfig(t, "storage:\n  backend: file\n")
	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, settings.Storage.Backend, "environment wins over the file")
	assert.Equal(t, 50*time.Millisecond, settings.Calculator.RevealDelay)
	assert.Equal(t, 5, settings.WebServer.Burst, "unbound keys use the GPACALC_ prefix")
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("GPACALC_STORAGE_BACKEND", "postgres")

	_, err := Load(writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPACALC_STORAGE_BACKEND")
}

func TestLoadResolvesDSNSecrets(t *testing.T) {
	t.Setenv("GPACALC_TEST_DB_PASS", "s3cret")
	secretFile := filepath.Join(t.TempDir(), "sentry_dsn")
	require.NoError(t, os.WriteFile(secretFile, []byte("https://key@sentry.example/1\n"), 0o600))

	settings, err := Load(writeConfig(t, `
storage:
  backend: mysql
  dsn: gpa:${GPACALC_TEST_DB_PASS}@tcp(db:3306)/gpacalc
sentry:
  dsnfile: `+secretFile+`
`))
	require.NoError(t, err)
	assert.Equal(t, "gpa:s3cret@tcp(db:3306)/gpacalc", settings.Storage.DSN)
	assert.Equal(t, "https://key@sentry.example/1", settings.Sentry.DSN)

	_, err = Load(writeConfig(t, "storage:\n  dsn: ${GPACALC_TEST_UNSET_PASS}\n"))
	require.Error(t, err)
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Locale:     "en",
			Storage:    StorageSettings{Backend: BackendFile, Debounce: DefaultDebounce},
			Calculator: CalculatorSettings{RevealDelay: DefaultRevealDelay},
			WebServer:  WebServerSettings{Listen: DefaultListen, RateLimit: DefaultRateLimit, Burst: DefaultBurst},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty backend defaults to file", func(s *Settings) { s.Storage.Backend = "" }, ""},
		{"unknown backend", func(s *Settings) { s.Storage.Backend = "redis" }, "storage.backend"},
		{"mysql without dsn", func(s *Settings) { s.Storage.Backend = BackendMySQL }, "storage.dsn"},
		{"negative debounce", func(s *Settings) { s.Storage.Debounce = -time.Second }, "storage.debounce"},
		{"debounce too long", func(s *Settings) { s.Storage.Debounce = time.Hour }, "storage.debounce"},
		{"reveal delay too long", func(s *Settings) { s.Calculator.RevealDelay = time.Minute }, "calculator.revealdelay"},
		{"bad listen", func(s *Settings) { s.WebServer.Listen = "8080" }, "webserver.listen"},
		{"zero rate", func(s *Settings) { s.WebServer.RateLimit = 0 }, "webserver.ratelimit"},
		{"zero burst", func(s *Settings) { s.WebServer.Burst = 0 }, "webserver.burst"},
		{"bad locale", func(s *Settings) { s.Locale = "not a locale" }, "locale"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfig(path, false))

	fromFile, err := Load(path)
	require.NoError(t, err)
	fromDefaults, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, fromDefaults, fromFile)

	err = CreateDefaultConfig(path, false)
	require.Error(t, err, "existing file is kept")
	require.NoError(t, CreateDefaultConfig(path, true))
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	settings, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	settings.Storage.Backend = BackendSQLite
	settings.Storage.Debounce = 750 * time.Millisecond
	settings.Locale = "fr"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, reloaded.Storage.Backend)
	assert.Equal(t, 750*time.Millisecond, reloaded.Storage.Debounce)
	assert.Equal(t, "fr", reloaded.Locale)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "config-*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary files are cleaned up")
}

func TestResolveStoragePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	t.Setenv("GPACALC_TEST_DIR", "/custom")

	tests := []struct {
		name     string
		settings StorageSettings
		want     string
	}{
		{"explicit path", StorageSettings{Backend: BackendFile, Path: "$GPACALC_TEST_DIR/data"}, "/custom/data"},
		{"file default", StorageSettings{Backend: BackendFile}, filepath.Join("/xdg", "gpacalc", "data")},
		{"sqlite default", StorageSettings{Backend: BackendSQLite}, filepath.Join("/xdg", "gpacalc", "gpacalc.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStoragePath(&tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
