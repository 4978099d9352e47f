package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/spf13/afero"
)

const fileExt = ".json"

// FileBackend stores each key as <dir>/<key>.json. Writes go to a temp
// file that is renamed into place.
type FileBackend struct {
	fs  afero.Fs
	dir string
}

// NewFileBackend creates dir on fs if needed.
func NewFileBackend(fs afero.Fs, dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("kvstore").
			Category(errors.CategoryFileIO).
			Context("operation", "create_data_dir").
			Context("dir", dir).
			Build()
	}
	return &FileBackend{fs: fs, dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(key)
		}
		return nil, errors.New(err).
			Component("kvstore").
			Category(errors.CategoryFileIO).
			Context("operation", "read_entry").
			Context("key", key).
			Build()
	}
	return data, nil
}

func (f *FileBackend) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	tmp, err := afero.TempFile(f.fs, f.dir, key+".*.tmp")
	if err != nil {
		return f.ioError(err, "create_temp", key)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpName)
		return f.ioError(err, "write_temp", key)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpName)
		return f.ioError(err, "close_temp", key)
	}
	if err := f.fs.Rename(tmpName, f.path(key)); err != nil {
		_ = f.fs.Remove(tmpName)
		return f.ioError(err, "rename", key)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := f.fs.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return f.ioError(err, "delete_entry", key)
	}
	return nil
}

func (f *FileBackend) Keys(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return nil, f.ioError(err, "list_entries", "")
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) ioError(err error, op, key string) error {
	return errors.New(err).
		Component("kvstore").
		Category(errors.CategoryFileIO).
		Context("operation", op).
		Context("key", key).
		Build()
}
