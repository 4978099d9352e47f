package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/kvstore"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingBackend counts writes per key and can be made to fail.
type recordingBackend struct {
	*kvstore.MemoryBackend
	mu     sync.Mutex
	sets   map[string]int
	failOn map[string]bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		MemoryBackend: kvstore.NewMemoryBackend(),
		sets:          make(map[string]int),
		failOn:        make(map[string]bool),
	}
}

func (r *recordingBackend) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.sets[key]++
	fail := r.failOn[key]
	r.mu.Unlock()
	if fail {
		return fmt.Errorf("disk full")
	}
	return r.MemoryBackend.Set(ctx, key, value)
}

func (r *recordingBackend) setCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[key]
}

type recordingObserver struct {
	mu        sync.Mutex
	mutations map[string]int
	entries   map[string]int
	persisted int
	failed    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{mutations: map[string]int{}, entries: map[string]int{}}
}

func (o *recordingObserver) RecordMutation(list, op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mutations[list+"/"+op]++
}

func (o *recordingObserver) RecordEntries(list string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[list] = n
}

func (o *recordingObserver) RecordPersist(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed++
		return
	}
	o.persisted++
}

func newTestStore(t *testing.T, backend kvstore.Backend, debounce time.Duration) (*Store, *recordingObserver) {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	obs := newRecordingObserver()
	s := New(context.Background(), kvstore.NewCache(backend, log), Config{
		Debounce: debounce,
		Logger:   log,
		Observer: obs,
	})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, obs
}

func TestStartsWithDefaults(t *testing.T) {
	s, obs := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	assert.Equal(t, model.DefaultSubjects(), s.Subjects())
	assert.Equal(t, model.DefaultSemesters(), s.Semesters())
	assert.True(t, s.BackgroundVisible())
	assert.Equal(t, 1, obs.entries[ListSubjects])
}

func TestIDsAreNeverReused(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	s.RemoveSubject(1)
	require.Empty(t, s.Subjects())

	assert.Equal(t, 1, s.AddSubject())
	assert.Equal(t, 2, s.AddSubject())
	s.RemoveSubject(1)
	assert.Equal(t, 3, s.AddSubject())

	ids := []int{}
	for _, sub := range s.Subjects() {
		ids = append(ids, sub.ID)
	}
	assert.Equal(t, []int{2, 3}, ids)

	assert.Equal(t, 2, s.AddSemester())
	s.RemoveSemester(2)
	s.RemoveSemester(42)
	assert.Equal(t, 2, s.AddSemester(), "next id follows the current max")
}

func TestResetRestoresSingleDefault(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	s.AddSubject()
	s.AddSubject()
	s.ResetSubjects()
	assert.Equal(t, model.DefaultSubjects(), s.Subjects())

	s.AddSemester()
	s.ResetSemesters()
	assert.Equal(t, model.DefaultSemesters(), s.Semesters())
}

func TestUpdateSubject(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	require.NoError(t, s.UpdateSubject(1, model.FieldHours, "4"))
	require.NoError(t, s.UpdateSubject(1, model.FieldGrade, "B"))
	require.NoError(t, s.UpdateSubject(99, model.FieldHours, "4"), "absent id is a no-op")

	err := s.UpdateSubject(1, model.FieldHours, "-3")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	sub, ok := s.Subject(1)
	require.True(t, ok)
	assert.Equal(t, 4, sub.Hours, "rejected edit keeps the previous value")
	assert.Equal(t, "3.0", sub.Grade)
}

func TestUpdateSemesterDoesNotRederive(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	gpa, ok := s.DeriveSemesterGPA(1, []model.Subject{
		{ID: 1, Hours: 3, Grade: "4.0"},
		{ID: 2, Hours: 3, Grade: "3.0"},
	})
	require.True(t, ok)
	assert.InDelta(t, 3.5, gpa, 1e-9)

	require.NoError(t, s.SetSemesterCreditHours(1, 20))
	require.Error(t, s.SetSemesterCreditHours(1, 61))

	sem, ok := s.Semester(1)
	require.True(t, ok)
	assert.InDelta(t, 3.5, sem.GPA, 1e-9)
	assert.Equal(t, 20, sem.CreditHours)
	assert.Len(t, sem.Subjects, 2)

	_, ok = s.DeriveSemesterGPA(7, nil)
	assert.False(t, ok)
}

func TestDeriveCopiesSubjects(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)

	subjects := []model.Subject{{ID: 1, Hours: 3, Grade: "4.0"}}
	_, ok := s.DeriveSemesterGPA(1, subjects)
	require.True(t, ok)

	subjects[0].Grade = "0.0"
	sem, _ := s.Semester(1)
	assert.Equal(t, "4.0", sem.Subjects[0].Grade)
}

func TestDebounceCoalescesWrites(t *testing.T) {
	backend := newRecordingBackend()
	s, _ := newTestStore(t, backend, 30*time.Millisecond)

	for range 10 {
		s.AddSubject()
	}
	s.ToggleBackground()

	require.Eventually(t, func() bool {
		return backend.setCount(KeySubjects) == 1 && backend.setCount(KeyBackground) == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, backend.setCount(KeySubjects))
	assert.Equal(t, 0, backend.setCount(KeySemesters), "untouched keys are not written")

	raw, err := backend.Get(context.Background(), KeySubjects)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Subject 11"`)
}

func TestFlushWritesDirtyKeysOnce(t *testing.T) {
	backend := newRecordingBackend()
	s, obs := newTestStore(t, backend, time.Hour)

	s.AddSemester()
	require.NoError(t, s.UpdateSemester(2, model.FieldGPA, "3.1"))
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Flush(context.Background()))

	assert.Equal(t, 1, backend.setCount(KeySemesters))
	assert.Equal(t, 0, backend.setCount(KeySubjects))
	assert.Equal(t, 1, obs.persisted)
	assert.Equal(t, 1, obs.mutations[ListSemesters+"/"+OpAdd])
	assert.Equal(t, 2, obs.entries[ListSemesters])
}

func TestPersistenceFailureKeepsMemory(t *testing.T) {
	backend := newRecordingBackend()
	backend.failOn[KeySubjects] = true
	s, obs := newTestStore(t, backend, time.Hour)

	id := s.AddSubject()
	err := s.Flush(context.Background())
	require.Error(t, err)

	_, ok := s.Subject(id)
	assert.True(t, ok)
	assert.Equal(t, 1, obs.failed)
}

func TestLoadFallsBackPerKey(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, KeySubjects, []byte(`{broken`)))
	require.NoError(t, backend.Set(ctx, KeySemesters, []byte(`[]`)))
	require.NoError(t, backend.Set(ctx, KeyBackground, []byte(`false`)))

	s, _ := newTestStore(t, backend, time.Hour)

	assert.Equal(t, model.DefaultSubjects(), s.Subjects())
	assert.Empty(t, s.Semesters(), "a stored empty list is kept")
	assert.False(t, s.BackgroundVisible())
	assert.Equal(t, 1, s.AddSemester())
}

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryBackend()

	first, _ := newTestStore(t, backend, time.Hour)
	first.AddSubject()
	require.NoError(t, first.UpdateSubject(2, model.FieldName, "Chemistry"))
	first.SetBackground(false)
	require.NoError(t, first.Close(ctx))

	second, _ := newTestStore(t, backend, time.Hour)
	subjects := second.Subjects()
	require.Len(t, subjects, 2)
	assert.Equal(t, "Chemistry", subjects[1].Name)
	assert.False(t, second.BackgroundVisible())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryBackend()
	s, _ := newTestStore(t, backend, time.Hour)

	s.AddSubject()
	s.ToggleBackground()
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Clear(ctx))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, model.DefaultSubjects(), s.Subjects())
	assert.True(t, s.BackgroundVisible())
}

func TestClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, "package", []byte(`{}`)))
	s, _ := newTestStore(t, backend, time.Hour)

	s.AddSubject()
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Clear(ctx))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"package"}, keys)
}

func TestCloseFlushesAfterCancel(t *testing.T) {
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	backend, err := kvstore.OpenSQLite(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	s, _ := newTestStore(t, backend, time.Hour)

	id := s.AddSubject()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Close(ctx))

	data, err := backend.Get(context.Background(), KeySubjects)
	require.NoError(t, err)
	var subjects []model.Subject
	require.NoError(t, json.Unmarshal(data, &subjects))
	require.Len(t, subjects, 2)
	assert.Equal(t, id, subjects[1].ID)
}

func TestCloseStopsTimer(t *testing.T) {
	backend := newRecordingBackend()
	s, _ := newTestStore(t, backend, 20*time.Millisecond)

	s.AddSubject()
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, backend.setCount(KeySubjects))

	s.AddSubject()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.setCount(KeySubjects), "no writes after close")
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)
	id := src.AddSubject()
	require.NoError(t, src.UpdateSubject(id, model.FieldName, "Physics"))
	src.ToggleBackground()
	snap := src.Snapshot()

	backend := newRecordingBackend()
	dst, obs := newTestStore(t, backend, time.Hour)
	require.NoError(t, dst.Restore(snap))
	require.NoError(t, dst.Flush(ctx))

	assert.Equal(t, src.Subjects(), dst.Subjects())
	assert.Equal(t, src.Semesters(), dst.Semesters())
	assert.False(t, dst.BackgroundVisible())
	assert.Equal(t, 1, backend.setCount(KeySubjects))
	assert.Equal(t, 1, obs.mutations[ListSubjects+"/"+OpImport])
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)
	before := s.Snapshot()

	err := s.Restore(Snapshot{Subjects: []model.Subject{model.NewSubject(1), model.NewSubject(1)}})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	bad := model.NewSemester(1)
	bad.GPA = 7
	require.Error(t, s.Restore(Snapshot{
		Subjects:  []model.Subject{model.NewSubject(4)},
		Semesters: []model.Semester{bad},
	}))
	assert.Equal(t, before, s.Snapshot(), "nothing applied on error")
}

func TestRestorePartial(t *testing.T) {
	s, _ := newTestStore(t, kvstore.NewMemoryBackend(), time.Hour)
	require.NoError(t, s.Restore(Snapshot{Subjects: []model.Subject{}}))
	assert.Empty(t, s.Subjects())
	assert.Equal(t, model.DefaultSemesters(), s.Semesters())
	assert.True(t, s.BackgroundVisible())
}
