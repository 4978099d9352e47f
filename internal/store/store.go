// Package store owns the subject and semester lists and mirrors them to a
// key-value cache with debounced write-behind.
//
// All mutation goes through Store methods. Every mutation marks its key
// dirty and restarts the debounce timer; when the timer fires each dirty
// key is written once. Persistence failures are logged and otherwise
// ignored, the in-memory lists stay authoritative.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/kvstore"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/model"
)

// Persisted keys.
const (
	KeySubjects   = "subjects"
	KeySemesters  = "semesters"
	KeyBackground = "is3DBackgroundVisible"
)

// DefaultDebounce is the write-behind window.
const DefaultDebounce = 300 * time.Millisecond

// persistTimeout bounds a single background flush.
const persistTimeout = 10 * time.Second

// keyOrder fixes the order in which dirty keys are written.
var keyOrder = []string{KeySubjects, KeySemesters, KeyBackground}

// Config holds optional Store dependencies.
type Config struct {
	Debounce time.Duration // zero means DefaultDebounce
	Logger   logger.Logger
	Observer Observer
}

// Store is the single owner of the entry lists.
type Store struct {
	mu         sync.Mutex
	subjects   []model.Subject
	semesters  []model.Semester
	background bool
	dirty      map[string]struct{}

	flushMu  sync.Mutex
	cache    *kvstore.Cache
	debounce *debouncer
	log      logger.Logger
	observer Observer
}

// New loads the lists from cache and returns a ready Store. Missing or
// unreadable keys fall back to their defaults.
func New(ctx context.Context, cache *kvstore.Cache, cfg Config) *Store {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module("store")
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	s := &Store{
		cache:    cache,
		log:      cfg.Logger,
		observer: cfg.Observer,
		dirty:    make(map[string]struct{}),
	}
	s.debounce = newDebouncer(cfg.Debounce, s.flushInBackground)
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	// a stored empty list is kept; only a missing or unparsable key
	// falls back to the default
	subjects := kvstore.GetItem(ctx, s.cache, KeySubjects, []model.Subject(nil))
	if subjects == nil {
		subjects = model.DefaultSubjects()
	}
	semesters := kvstore.GetItem(ctx, s.cache, KeySemesters, []model.Semester(nil))
	if semesters == nil {
		semesters = model.DefaultSemesters()
	}
	background := kvstore.GetItem(ctx, s.cache, KeyBackground, true)

	s.mu.Lock()
	s.subjects = subjects
	s.semesters = semesters
	s.background = background
	s.reportEntriesLocked()
	s.mu.Unlock()

	s.log.Debug("Loaded state",
		logger.Int("subjects", len(subjects)),
		logger.Int("semesters", len(semesters)),
		logger.Bool("background", background))
}

// commitLocked records a mutation and schedules a flush. Caller holds mu.
func (s *Store) commitLocked(list, op string, keys ...string) {
	for _, k := range keys {
		s.dirty[k] = struct{}{}
	}
	s.observer.RecordMutation(list, op)
	s.reportEntriesLocked()
	s.debounce.trigger()
}

func (s *Store) reportEntriesLocked() {
	s.observer.RecordEntries(ListSubjects, len(s.subjects))
	s.observer.RecordEntries(ListSemesters, len(s.semesters))
}

func nextSubjectID(list []model.Subject) int {
	id := 0
	for _, e := range list {
		id = max(id, e.ID)
	}
	return id + 1
}

func nextSemesterID(list []model.Semester) int {
	id := 0
	for _, e := range list {
		id = max(id, e.ID)
	}
	return id + 1
}

// Subjects returns a copy of the subject list.
func (s *Store) Subjects() []model.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.subjects)
}

// Subject returns the subject with id.
func (s *Store) Subject(id int) (model.Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.subjects, func(e model.Subject) bool { return e.ID == id })
	if i < 0 {
		return model.Subject{}, false
	}
	return s.subjects[i], true
}

// Semesters returns a deep copy of the semester list.
func (s *Store) Semesters() []model.Semester {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Semester, len(s.semesters))
	for i, e := range s.semesters {
		out[i] = e.Clone()
	}
	return out
}

// Semester returns the semester with id.
func (s *Store) Semester(id int) (model.Semester, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.semesters, func(e model.Semester) bool { return e.ID == id })
	if i < 0 {
		return model.Semester{}, false
	}
	return s.semesters[i].Clone(), true
}

// BackgroundVisible reports the display preference.
func (s *Store) BackgroundVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// AddSubject appends a default subject and returns its id.
func (s *Store) AddSubject() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := nextSubjectID(s.subjects)
	s.subjects = append(s.subjects, model.NewSubject(id))
	s.commitLocked(ListSubjects, OpAdd, KeySubjects)
	return id
}

// UpdateSubject sets one field of the subject with id. An absent id is a
// no-op. Invalid values return a validation error and change nothing.
func (s *Store) UpdateSubject(id int, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.subjects, func(e model.Subject) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	if err := model.ApplySubjectField(&s.subjects[i], field, value); err != nil {
		s.log.Debug("Rejected subject edit",
			logger.Int("id", id),
			logger.String("field", field),
			logger.Error(err))
		return err
	}
	s.commitLocked(ListSubjects, OpUpdate, KeySubjects)
	return nil
}

// RemoveSubject deletes the subject with id. Remaining ids are kept.
func (s *Store) RemoveSubject(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.subjects)
	s.subjects = slices.DeleteFunc(s.subjects, func(e model.Subject) bool { return e.ID == id })
	if len(s.subjects) == n {
		return
	}
	s.commitLocked(ListSubjects, OpRemove, KeySubjects)
}

// ResetSubjects replaces the list with the single default subject.
func (s *Store) ResetSubjects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = model.DefaultSubjects()
	s.commitLocked(ListSubjects, OpReset, KeySubjects)
}

// AddSemester appends a default semester and returns its id.
func (s *Store) AddSemester() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := nextSemesterID(s.semesters)
	s.semesters = append(s.semesters, model.NewSemester(id))
	s.commitLocked(ListSemesters, OpAdd, KeySemesters)
	return id
}

// UpdateSemester sets one field of the semester with id. An absent id is
// a no-op. Invalid values return a validation error and change nothing.
func (s *Store) UpdateSemester(id int, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.semesters, func(e model.Semester) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	if err := model.ApplySemesterField(&s.semesters[i], field, value); err != nil {
		s.log.Debug("Rejected semester edit",
			logger.Int("id", id),
			logger.String("field", field),
			logger.Error(err))
		return err
	}
	s.commitLocked(ListSemesters, OpUpdate, KeySemesters)
	return nil
}

// SetSemesterCreditHours is UpdateSemester for the creditHours field.
func (s *Store) SetSemesterCreditHours(id, hours int) error {
	return s.UpdateSemester(id, model.FieldCreditHours, hours)
}

// RemoveSemester deletes the semester with id. Remaining ids are kept.
func (s *Store) RemoveSemester(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.semesters)
	s.semesters = slices.DeleteFunc(s.semesters, func(e model.Semester) bool { return e.ID == id })
	if len(s.semesters) == n {
		return
	}
	s.commitLocked(ListSemesters, OpRemove, KeySemesters)
}

// ResetSemesters replaces the list with the single default semester.
func (s *Store) ResetSemesters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.semesters = model.DefaultSemesters()
	s.commitLocked(ListSemesters, OpReset, KeySemesters)
}

// DeriveSemesterGPA computes the GPA of subjects and stores it, together
// with a copy of subjects, on the semester with semesterID. It reports
// false when no such semester exists.
func (s *Store) DeriveSemesterGPA(semesterID int, subjects []model.Subject) (float64, bool) {
	gpa := calc.GPA(subjects)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.semesters, func(e model.Semester) bool { return e.ID == semesterID })
	if i < 0 {
		return 0, false
	}
	s.semesters[i].GPA = gpa
	s.semesters[i].Subjects = append([]model.Subject{}, subjects...)
	s.commitLocked(ListSemesters, OpDerive, KeySemesters)
	return gpa, true
}

// ToggleBackground flips the display preference and returns the new value.
func (s *Store) ToggleBackground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = !s.background
	s.commitLocked(ListBackground, OpToggle, KeyBackground)
	return s.background
}

// SetBackground sets the display preference.
func (s *Store) SetBackground(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.background == visible {
		return
	}
	s.background = visible
	s.commitLocked(ListBackground, OpToggle, KeyBackground)
}

// snapshotLocked copies the values of the dirty keys and clears the set.
func (s *Store) snapshotLocked() map[string]any {
	out := make(map[string]any, len(s.dirty))
	for k := range s.dirty {
		switch k {
		case KeySubjects:
			out[k] = slices.Clone(s.subjects)
		case KeySemesters:
			sems := make([]model.Semester, len(s.semesters))
			for i, e := range s.semesters {
				sems[i] = e.Clone()
			}
			out[k] = sems
		case KeyBackground:
			out[k] = s.background
		}
	}
	clear(s.dirty)
	return out
}

// Flush writes every dirty key now, once each. The returned error joins
// all write failures; memory is unaffected either way.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.debounce.cancel()
	pending := s.snapshotLocked()
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var errs []error
	for _, key := range keyOrder {
		v, ok := pending[key]
		if !ok {
			continue
		}
		start := time.Now()
		err := kvstore.SetItem(ctx, s.cache, key, v)
		s.observer.RecordPersist(key, time.Since(start), err)
		if err != nil {
			s.log.Warn("Failed to persist state, keeping in memory",
				logger.String("key", key),
				logger.Error(err))
			errs = append(errs, err)
			continue
		}
		s.log.Trace("Persisted state", logger.String("key", key))
	}
	return errors.Join(errs...)
}

func (s *Store) flushInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	_ = s.Flush(ctx)
}

// Close flushes pending writes and stops the debounce timer. Later
// mutations are written only by an explicit Flush.
func (s *Store) Close(ctx context.Context) error {
	s.debounce.stop()
	// pending writes must land even when ctx is already cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return s.Flush(ctx)
}

// Clear deletes the store's keys from the cache and restores the defaults in
// memory without scheduling a write.
func (s *Store) Clear(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.debounce.cancel()
	clear(s.dirty)
	s.subjects = model.DefaultSubjects()
	s.semesters = model.DefaultSemesters()
	s.background = true
	s.observer.RecordMutation(ListSubjects, OpClear)
	s.observer.RecordMutation(ListSemesters, OpClear)
	s.reportEntriesLocked()
	s.mu.Unlock()

	if err := s.cache.Clear(ctx, keyOrder...); err != nil {
		s.log.Warn("Failed to clear persisted state", logger.Error(err))
		return err
	}
	s.log.Info("Cleared persisted state")
	return nil
}
