package observability

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gpacalc/gpacalc/internal/observability/metrics"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreMetrics must keep satisfying the store's observer contract.
var _ store.Observer = (*metrics.StoreMetrics)(nil)

func TestStoreMetricsRecord(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Store.RecordMutation(store.ListSubjects, store.OpAdd)
	m.Store.RecordMutation(store.ListSubjects, store.OpAdd)
	m.Store.RecordEntries(store.ListSubjects, 3)
	m.Store.RecordPersist(store.KeySubjects, 2*time.Millisecond, nil)
	m.Store.RecordPersist(store.KeySubjects, time.Millisecond, fmt.Errorf("disk full"))

	expected := `
# HELP gpacalc_store_mutations_total Total number of store mutations
# TYPE gpacalc_store_mutations_total counter
gpacalc_store_mutations_total{list="subjects",operation="add"} 2
# HELP gpacalc_store_entries Current number of entries per list
# TYPE gpacalc_store_entries gauge
gpacalc_store_entries{list="subjects"} 3
# HELP gpacalc_store_persist_total Total number of key writes to the persistent cache
# TYPE gpacalc_store_persist_total counter
gpacalc_store_persist_total{key="subjects",status="error"} 1
gpacalc_store_persist_total{key="subjects",status="success"} 1
`
	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"gpacalc_store_mutations_total", "gpacalc_store_entries", "gpacalc_store_persist_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Store, "gpacalc_store_persist_duration_seconds"))
}

func TestHTTPMetricsRecord(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.RecordRequest(http.MethodGet, "/api/v1/gpa", http.StatusOK, 5*time.Millisecond, 120)
	m.HTTP.RecordError(http.MethodPatch, "/api/v1/subjects/:id", "validation")
	m.HTTP.RecordRateLimited()

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTP, "gpacalc_http_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTP, "gpacalc_http_request_errors_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTP, "gpacalc_http_rate_limited_total"))
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Store.RecordEntries(store.ListSemesters, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gpacalc_store_entries{list="semesters"} 2`)
	assert.Contains(t, string(body), "go_goroutines")
}
