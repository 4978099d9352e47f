package observability

import "github.com/gpacalc/gpacalc/internal/logger"

// log returns the package logger. It is resolved lazily so that a
// CentralLogger installed with logger.SetGlobal is picked up.
func log() logger.Logger {
	return logger.Global().Module("metrics")
}
