package conf

import (
	"os"
	"path/filepath"

	"github.com/gpacalc/gpacalc/internal/errors"
)

const appDirName = "gpacalc"

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in order: the working directory and the user config directory. If a
// config.yaml exists in one of them, only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-user-config-dir").
			Build()
	}

	configPaths := []string{
		".",
		filepath.Join(userConfigDir, appDirName),
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// DefaultConfigFile returns the path config init writes to.
func DefaultConfigFile() (string, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(paths[len(paths)-1], "config.yaml"), nil
}

// ResolveStoragePath returns the configured storage path, or the default
// location for the backend under the user data directory.
func ResolveStoragePath(settings *StorageSettings) (string, error) {
	if settings.Path != "" {
		return os.ExpandEnv(settings.Path), nil
	}

	base, err := userDataDir()
	if err != nil {
		return "", err
	}
	switch settings.Backend {
	case BackendSQLite:
		return filepath.Join(base, "gpacalc.db"), nil
	default:
		return filepath.Join(base, "data"), nil
	}
}

// userDataDir returns $XDG_DATA_HOME/gpacalc, falling back to
// ~/.local/share/gpacalc, or the config dir on Windows and macOS.
func userDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		if _, statErr := os.Stat(filepath.Join(home, ".local", "share")); statErr == nil {
			return filepath.Join(home, ".local", "share", appDirName), nil
		}
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-user-data-dir").
			Build()
	}
	return filepath.Join(configDir, appDirName), nil
}
