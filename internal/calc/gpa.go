package calc

import (
	"math"

	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/gpacalc/gpacalc/internal/model"
)

// subjectPairs converts subjects into (hours, points) pairs. Subjects
// without hours or without a grade are dropped; an unknown grade keeps its
// hours and counts as 0 points.
func subjectPairs(subjects []model.Subject) []Pair {
	pairs := make([]Pair, 0, len(subjects))
	for _, s := range subjects {
		if s.Hours <= 0 || s.Grade == "" {
			continue
		}
		pairs = append(pairs, Pair{Weight: float64(s.Hours), Value: grade.Points(s.Grade)})
	}
	return pairs
}

// GPA is the credit-hour weighted mean of grade points.
func GPA(subjects []model.Subject) float64 {
	return WeightedAverage(subjectPairs(subjects))
}

// semesterPairs keeps semesters with a non-negative numeric GPA.
func semesterPairs(semesters []model.Semester) []Pair {
	pairs := make([]Pair, 0, len(semesters))
	for _, s := range semesters {
		if math.IsNaN(s.GPA) || math.IsInf(s.GPA, 0) || s.GPA < 0 {
			continue
		}
		pairs = append(pairs, Pair{Weight: float64(s.CreditHours), Value: s.GPA})
	}
	return pairs
}

// CGPA is the credit-hour weighted mean of semester GPAs. When no semester
// carries usable credit hours it falls back to the simple mean.
func CGPA(semesters []model.Semester) float64 {
	pairs := semesterPairs(semesters)
	if totalWeight(pairs) == 0 {
		return FallbackAverage(pairs)
	}
	return WeightedAverage(pairs)
}

// Contribution is hours times grade points, or 0 when the subject has no
// hours or no known grade.
func Contribution(s model.Subject) float64 {
	if s.Hours <= 0 {
		return 0
	}
	e, ok := grade.Lookup(s.Grade)
	if !ok {
		return 0
	}
	return float64(s.Hours) * e.Points
}

// MaxContribution is the contribution the subject would make with the
// top grade.
func MaxContribution(s model.Subject) float64 {
	if s.Hours <= 0 {
		return 0
	}
	return float64(s.Hours) * grade.MaxPoints
}

// Nearest returns the grade table entry closest to gpa.
func Nearest(gpa float64) grade.Entry {
	return grade.Nearest(gpa)
}
