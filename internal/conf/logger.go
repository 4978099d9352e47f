package conf

import "github.com/gpacalc/gpacalc/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger on each call so a central logger
// installed after package init is used.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
