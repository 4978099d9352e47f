// Package model defines the subject and semester entries kept by the store.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/spf13/cast"
)

// Default values for newly added entries.
const (
	DefaultSubjectHours        = 3
	DefaultSubjectGrade        = "4.0"
	DefaultSemesterCreditHours = 18
)

// Validation bounds, mirrored in the struct tags below.
const (
	MaxSubjectHours        = 12
	MaxSemesterCreditHours = 60
	MaxNameLength          = 120
)

// Subject is a single course with a credit weight and a grade label.
// An empty Grade means no grade has been chosen yet.
type Subject struct {
	ID    int    `json:"id" validate:"gte=1"`
	Name  string `json:"name" validate:"max=120"`
	Hours int    `json:"hours" validate:"gte=0,lte=12"`
	Grade string `json:"grade"`
}

// Semester is a term with a GPA and a credit weight. CreditHours of 0
// means the weight is unknown. Subjects is only set when the GPA was
// derived from a subject list.
type Semester struct {
	ID          int       `json:"id" validate:"gte=1"`
	Name        string    `json:"name" validate:"max=120"`
	GPA         float64   `json:"gpa" validate:"gte=0,lte=4"`
	CreditHours int       `json:"creditHours" validate:"gte=0,lte=60"`
	Subjects    []Subject `json:"subjects,omitempty" validate:"-"`
}

// NewSubject returns the default subject for id.
func NewSubject(id int) Subject {
	return Subject{
		ID:    id,
		Name:  fmt.Sprintf("Subject %d", id),
		Hours: DefaultSubjectHours,
		Grade: DefaultSubjectGrade,
	}
}

// NewSemester returns the default semester for id.
func NewSemester(id int) Semester {
	return Semester{
		ID:          id,
		Name:        fmt.Sprintf("Semester %d", id),
		GPA:         0,
		CreditHours: DefaultSemesterCreditHours,
	}
}

// DefaultSubjects is the canonical single-entry subject list.
func DefaultSubjects() []Subject {
	return []Subject{NewSubject(1)}
}

// DefaultSemesters is the canonical single-entry semester list.
func DefaultSemesters() []Semester {
	return []Semester{NewSemester(1)}
}

// Clone returns a deep copy of the semester.
func (s Semester) Clone() Semester {
	if s.Subjects != nil {
		s.Subjects = append([]Subject(nil), s.Subjects...)
	}
	return s
}

// UnmarshalJSON accepts numeric fields encoded either as numbers or as
// strings. Values that do not parse decode as zero.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    any    `json:"id"`
		Name  string `json:"name"`
		Hours any    `json:"hours"`
		Grade any    `json:"grade"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Subject{
		ID:    looseInt(raw.ID),
		Name:  raw.Name,
		Hours: looseInt(raw.Hours),
		Grade: normalizeGrade(cast.ToString(raw.Grade)),
	}
	return nil
}

// normalizeGrade maps alternate spellings ("0", "A") onto table labels and
// leaves anything unrecognised untouched.
func normalizeGrade(s string) string {
	s = strings.TrimSpace(s)
	if e, ok := grade.Parse(s); ok {
		return e.Label
	}
	return s
}

// UnmarshalJSON accepts numeric fields encoded either as numbers or as
// strings. Values that do not parse decode as zero.
func (s *Semester) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          any       `json:"id"`
		Name        string    `json:"name"`
		GPA         any       `json:"gpa"`
		CreditHours any       `json:"creditHours"`
		Subjects    []Subject `json:"subjects"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Semester{
		ID:          looseInt(raw.ID),
		Name:        raw.Name,
		GPA:         looseFloat(raw.GPA),
		CreditHours: looseInt(raw.CreditHours),
		Subjects:    raw.Subjects,
	}
	return nil
}

func looseFloat(v any) float64 {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func looseInt(v any) int {
	f := looseFloat(v)
	if f != math.Trunc(f) {
		return 0
	}
	return int(f)
}
