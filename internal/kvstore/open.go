package kvstore

import (
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/spf13/afero"
)

// Open returns the backend described by opts.
func Open(opts Options, log logger.Logger) (Backend, error) {
	switch opts.Kind {
	case KindFile, "":
		return NewFileBackend(afero.NewOsFs(), opts.Path)
	case KindSQLite:
		return OpenSQLite(opts.Path, log)
	case KindMySQL:
		return OpenMySQL(opts.DSN, log)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, errors.Newf("unsupported storage backend %q", opts.Kind).
			Component("kvstore").
			Category(errors.CategoryConfiguration).
			Context("backend", opts.Kind).
			Build()
	}
}
