package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/kvstore"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T, backend string) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Locale: "en",
		Storage: conf.StorageSettings{
			Backend:  backend,
			Path:     filepath.Join(t.TempDir(), "data"),
			Debounce: 10 * time.Millisecond,
		},
		Logging: logger.LoggingConfig{
			DefaultLevel: "error",
			Console:      &logger.ConsoleOutput{Enabled: false},
		},
	}
}

func TestOpenCloseFileBackend(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t, conf.BackendFile)

	s, err := Open(ctx, settings)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Store.Subjects(), 1, "fresh data directory starts from defaults")

	id := s.Store.AddSubject()
	require.NoError(t, s.Store.UpdateSubject(id, model.FieldGrade, "3.7"))
	require.NoError(t, s.Close(ctx))

	reopened, err := Open(ctx, settings)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close(ctx)) }()

	subjects := reopened.Store.Subjects()
	require.Len(t, subjects, 2, "state survives a new session")
	assert.Equal(t, "3.7", subjects[1].Grade)
}

func TestOpenSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t, conf.BackendSQLite)
	settings.Storage.Path = filepath.Join(t.TempDir(), "nested", "gpacalc.db")

	s, err := Open(ctx, settings)
	require.NoError(t, err)
	s.Store.AddSemester()
	require.NoError(t, s.Close(ctx))

	reopened, err := Open(ctx, settings)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close(ctx)) }()
	assert.Len(t, reopened.Store.Semesters(), 2)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), testSettings(t, "redis"))
	require.Error(t, err)
}

func TestOpenRejectsNilSettings(t *testing.T) {
	_, err := Open(context.Background(), nil)
	require.Error(t, err)
}

func TestStoreMetricsAreWired(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryBackend()

	s, err := OpenWithBackend(ctx, testSettings(t, conf.BackendMemory), backend)
	require.NoError(t, err)

	s.Store.AddSubject()
	require.NoError(t, s.Store.Flush(ctx))

	assert.Equal(t, 1, testutil.CollectAndCount(s.Metrics.Store, "gpacalc_store_mutations_total"))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(s.Metrics.Store, "gpacalc_store_persist_total"), 1)

	require.NoError(t, s.Close(ctx))

	raw, err := backend.Get(ctx, store.KeySubjects)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":2`)
}

func TestContextCarriesSessionID(t *testing.T) {
	ctx := context.Background()
	s, err := OpenWithBackend(ctx, testSettings(t, conf.BackendMemory), kvstore.NewMemoryBackend())
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close(ctx)) }()

	assert.Equal(t, s.ID, s.Context(ctx).Value(logger.TraceIDKey))
}
