package store

import (
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/model"
)

// Snapshot is the complete state in the persisted key layout.
type Snapshot struct {
	Subjects   []model.Subject  `json:"subjects"`
	Semesters  []model.Semester `json:"semesters"`
	Background *bool            `json:"is3DBackgroundVisible,omitempty"`
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	subjects := s.Subjects()
	semesters := s.Semesters()
	bg := s.BackgroundVisible()
	return Snapshot{Subjects: subjects, Semesters: semesters, Background: &bg}
}

// Restore replaces the state with snap. A nil list or background leaves
// that part unchanged. The whole snapshot is checked first; on error
// nothing is applied.
func (s *Store) Restore(snap Snapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Subjects != nil {
		s.subjects = append([]model.Subject{}, snap.Subjects...)
		s.commitLocked(ListSubjects, OpImport, KeySubjects)
	}
	if snap.Semesters != nil {
		sems := make([]model.Semester, len(snap.Semesters))
		for i, e := range snap.Semesters {
			sems[i] = e.Clone()
		}
		s.semesters = sems
		s.commitLocked(ListSemesters, OpImport, KeySemesters)
	}
	if snap.Background != nil {
		s.background = *snap.Background
		s.commitLocked(ListBackground, OpImport, KeyBackground)
	}

	s.log.Info("Imported state",
		logger.Int("subjects", len(s.subjects)),
		logger.Int("semesters", len(s.semesters)))
	return nil
}

func checkSnapshot(snap Snapshot) error {
	seen := make(map[int]bool, len(snap.Subjects))
	for _, e := range snap.Subjects {
		if seen[e.ID] {
			return duplicateID("subject", e.ID)
		}
		seen[e.ID] = true
		if err := model.Validate(e); err != nil {
			return err
		}
	}

	clear(seen)
	for _, e := range snap.Semesters {
		if seen[e.ID] {
			return duplicateID("semester", e.ID)
		}
		seen[e.ID] = true
		if err := model.Validate(e); err != nil {
			return err
		}
	}
	return nil
}

func duplicateID(kind string, id int) error {
	return errors.Newf("duplicate %s id %d", kind, id).
		Component("store").
		Category(errors.CategoryValidation).
		Context("id", id).
		Build()
}
