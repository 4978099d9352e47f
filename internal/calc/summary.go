package calc

import (
	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/gpacalc/gpacalc/internal/model"
)

// Performance tiers reported by Summarize.
const (
	PerformanceExcellent    = "Excellent"
	PerformanceVeryGood     = "Very Good"
	PerformanceGood         = "Good"
	PerformanceSatisfactory = "Satisfactory"
	PerformanceNeedsWork    = "Needs Improvement"
)

// Result is a computed GPA with its display companions.
type Result struct {
	GPA         float64 `json:"gpa"`
	Letter      string  `json:"letter"`
	Label       string  `json:"label"`
	Performance string  `json:"performance"`
	Percentage  float64 `json:"percentage"`
}

// Summarize attaches the nearest letter, a performance tier and the
// percentage of the maximum to gpa.
func Summarize(gpa float64) Result {
	e := grade.Nearest(gpa)
	return Result{
		GPA:         Round3(gpa),
		Letter:      e.Letter,
		Label:       e.Label,
		Performance: Performance(gpa),
		Percentage:  Round3(gpa / grade.MaxPoints * 100),
	}
}

// Performance maps a GPA to its descriptive tier.
func Performance(gpa float64) string {
	switch {
	case gpa >= 3.7:
		return PerformanceExcellent
	case gpa >= 3.0:
		return PerformanceVeryGood
	case gpa >= 2.0:
		return PerformanceGood
	case gpa >= 1.0:
		return PerformanceSatisfactory
	default:
		return PerformanceNeedsWork
	}
}

// TrendPoint is the running CGPA after one semester.
type TrendPoint struct {
	SemesterID int     `json:"semesterId"`
	Name       string  `json:"name"`
	GPA        float64 `json:"gpa"`
	CGPA       float64 `json:"cgpa"`
}

// Trend returns, for each semester with a usable GPA, the CGPA of all
// usable semesters up to and including it.
func Trend(semesters []model.Semester) []TrendPoint {
	points := make([]TrendPoint, 0, len(semesters))
	prefix := make([]model.Semester, 0, len(semesters))
	for _, s := range semesters {
		if len(semesterPairs([]model.Semester{s})) == 0 {
			continue
		}
		prefix = append(prefix, s)
		points = append(points, TrendPoint{
			SemesterID: s.ID,
			Name:       s.Name,
			GPA:        s.GPA,
			CGPA:       CGPA(prefix),
		})
	}
	return points
}

// SubjectShare is one subject's part of the GPA.
type SubjectShare struct {
	SubjectID       int     `json:"subjectId"`
	Name            string  `json:"name"`
	Hours           int     `json:"hours"`
	Grade           string  `json:"grade"`
	Contribution    float64 `json:"contribution"`
	MaxContribution float64 `json:"maxContribution"`
}

// Breakdown describes how a subject list adds up to its GPA.
type Breakdown struct {
	Subjects          []SubjectShare `json:"subjects"`
	HoursDistribution map[int]int    `json:"hoursDistribution"`
	Best              *SubjectShare  `json:"best,omitempty"`
	Worst             *SubjectShare  `json:"worst,omitempty"`
	MeanPercentage    float64        `json:"meanPercentage"`
	GPA               float64        `json:"gpa"`
}

// BreakdownOf reports per-subject contributions for subjects that have
// hours and a known grade. Best and worst keep the first subject seen on
// ties.
func BreakdownOf(subjects []model.Subject) Breakdown {
	b := Breakdown{
		Subjects:          make([]SubjectShare, 0, len(subjects)),
		HoursDistribution: make(map[int]int),
		GPA:               GPA(subjects),
	}

	var pctSum float64
	for _, s := range subjects {
		e, ok := grade.Lookup(s.Grade)
		if s.Hours <= 0 || !ok {
			continue
		}
		b.Subjects = append(b.Subjects, SubjectShare{
			SubjectID:       s.ID,
			Name:            s.Name,
			Hours:           s.Hours,
			Grade:           s.Grade,
			Contribution:    Round3(Contribution(s)),
			MaxContribution: MaxContribution(s),
		})
		b.HoursDistribution[s.Hours]++
		pctSum += e.Percentage
	}

	for i := range b.Subjects {
		sh := &b.Subjects[i]
		if b.Best == nil || sh.Contribution > b.Best.Contribution {
			b.Best = sh
		}
		if b.Worst == nil || sh.Contribution < b.Worst.Contribution {
			b.Worst = sh
		}
	}
	if n := len(b.Subjects); n > 0 {
		b.MeanPercentage = Round3(pctSum / float64(n))
	}
	return b
}
