package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/gpacalc/gpacalc/internal/kvstore"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestController returns a controller over a fresh in-memory store.
func setupTestController(t *testing.T) (*echo.Echo, *Controller) {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	st := store.New(context.Background(), kvstore.NewCache(kvstore.NewMemoryBackend(), log), store.Config{
		Debounce: time.Hour,
		Logger:   log,
	})
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	e := echo.New()
	c, err := New(e, st, WithLogger(log))
	require.NoError(t, err)
	return e, c
}

// doRequest sends a request through the full router.
func doRequest(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewRequiresStore(t *testing.T) {
	t.Parallel()
	_, err := New(echo.New(), nil)
	require.Error(t, err)
}

func TestHealthAndGrades(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/grades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, grade.Entries(), decode[[]grade.Entry](t, rec))
}

func TestSubjectLifecycle(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)

	rec := doRequest(t, e, http.MethodPost, "/api/v1/subjects", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, CreatedResponse{ID: 2}, decode[CreatedResponse](t, rec))

	rec = doRequest(t, e, http.MethodPatch, "/api/v1/subjects/2", `{"name":"Physics","hours":"4","grade":"3.0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[SubjectView](t, rec)
	assert.Equal(t, SubjectView{ID: 2, Name: "Physics", Hours: 4, Grade: "3.0", Contribution: 12, MaxContribution: 16}, view)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/subjects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[SubjectsResponse](t, rec)
	require.Len(t, list.Subjects, 2)
	// (3*4.0 + 4*3.0) / 7
	assert.InDelta(t, 3.429, list.GPA.GPA, 1e-9)
	assert.Equal(t, "A-", list.GPA.Letter)

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/subjects/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	subjects := c.Store.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, 2, subjects[0].ID)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/subjects/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.DefaultSubjects(), c.Store.Subjects())
}

func TestUpdateSubjectIsAllOrNothing(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)
	before := c.Store.Subjects()

	rec := doRequest(t, e, http.MethodPatch, "/api/v1/subjects/1", `{"name":"Chemistry","hours":"abc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NotEmpty(t, resp.CorrelationID)

	assert.Equal(t, before, c.Store.Subjects(), "name is not applied when hours is rejected")
}

func TestUpdateSubjectErrors(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown id", "/api/v1/subjects/99", `{"name":"x"}`, http.StatusNotFound},
		{"bad id", "/api/v1/subjects/abc", `{"name":"x"}`, http.StatusBadRequest},
		{"unknown field", "/api/v1/subjects/1", `{"colour":"red"}`, http.StatusBadRequest},
		{"unknown grade", "/api/v1/subjects/1", `{"grade":"5.0"}`, http.StatusBadRequest},
		{"empty body", "/api/v1/subjects/1", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/subjects/1", `{"name":`, http.StatusBadRequest},
		{"hours out of range", "/api/v1/subjects/1", `{"hours":40}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, e, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSemesterLifecycleAndCGPA(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)

	rec := doRequest(t, e, http.MethodPatch, "/api/v1/semesters/1", `{"gpa":3.0,"creditHours":15}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, e, http.MethodPost, "/api/v1/semesters", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, e, http.MethodPatch, "/api/v1/semesters/2", `{"gpa":"4","creditHours":"15"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, e, http.MethodGet, "/api/v1/cgpa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cgpa := decode[CGPAResponse](t, rec)
	assert.InDelta(t, 3.5, cgpa.Result.GPA, 1e-9)
	require.Len(t, cgpa.Trend, 2)
	assert.InDelta(t, 3.0, cgpa.Trend[0].CGPA, 1e-9)
	assert.InDelta(t, 3.5, cgpa.Trend[1].CGPA, 1e-9)

	rec = doRequest(t, e, http.MethodPatch, "/api/v1/semesters/2", `{"gpa":4.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/semesters/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/semesters/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.DefaultSemesters(), c.Store.Semesters())
}

func TestDeriveSemester(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)

	// from the current subject list (single default subject, 4.0)
	rec := doRequest(t, e, http.MethodPost, "/api/v1/semesters/1/derive", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DeriveResponse](t, rec)
	assert.InDelta(t, 4.0, resp.GPA, 1e-9)
	assert.Len(t, resp.Semester.Subjects, 1)

	// from an explicit list
	rec = doRequest(t, e, http.MethodPost, "/api/v1/semesters/1/derive",
		`{"subjects":[{"id":1,"name":"A","hours":3,"grade":"4.0"},{"id":2,"name":"B","hours":3,"grade":"3.0"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[DeriveResponse](t, rec)
	assert.InDelta(t, 3.5, resp.GPA, 1e-9)

	sem, ok := c.Store.Semester(1)
	require.True(t, ok)
	assert.InDelta(t, 3.5, sem.GPA, 1e-9)
	assert.Len(t, sem.Subjects, 2)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/semesters/9/derive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeriveSemesterRejectsInvalidSubjects(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)
	before, ok := c.Store.Semester(1)
	require.True(t, ok)

	bodies := []string{
		`{"subjects":[{"id":1,"name":"A","hours":99,"grade":"4.0"}]}`,
		`{"subjects":[{"id":0,"name":"A","hours":3,"grade":"4.0"}]}`,
		`{"subjects":[{"id":1,"name":"` + strings.Repeat("x", model.MaxNameLength+1) + `","hours":3,"grade":"4.0"}]}`,
	}
	for _, body := range bodies {
		rec := doRequest(t, e, http.MethodPost, "/api/v1/semesters/1/derive", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	after, ok := c.Store.Semester(1)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestGPABreakdown(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)
	id := c.Store.AddSubject()
	require.NoError(t, c.Store.UpdateSubject(id, model.FieldGrade, "2.0"))

	rec := doRequest(t, e, http.MethodGet, "/api/v1/gpa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GPAResponse](t, rec)

	assert.Equal(t, calc.Summarize(3.0), resp.Result)
	require.Len(t, resp.Breakdown.Subjects, 2)
	require.NotNil(t, resp.Breakdown.Best)
	assert.Equal(t, 1, resp.Breakdown.Best.SubjectID)
	require.NotNil(t, resp.Breakdown.Worst)
	assert.Equal(t, id, resp.Breakdown.Worst.SubjectID)
}

func TestBackground(t *testing.T) {
	t.Parallel()
	e, c := setupTestController(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/background", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[BackgroundResponse](t, rec).Visible)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/background/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[BackgroundResponse](t, rec).Visible)
	assert.False(t, c.Store.BackgroundVisible())

	rec = doRequest(t, e, http.MethodPut, "/api/v1/background", `{"visible":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.Store.BackgroundVisible())

	rec = doRequest(t, e, http.MethodPut, "/api/v1/background", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
