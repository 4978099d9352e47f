package model

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/spf13/cast"
)

// Editable field names.
const (
	FieldName        = "name"
	FieldHours       = "hours"
	FieldGrade       = "grade"
	FieldGPA         = "gpa"
	FieldCreditHours = "creditHours"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ApplySubjectField sets one field of s from a user supplied value. On
// error s is left unchanged.
func ApplySubjectField(s *Subject, field string, value any) error {
	next := *s
	var structField string

	switch field {
	case FieldName:
		next.Name = strings.TrimSpace(cast.ToString(value))
		structField = "Name"
	case FieldHours:
		n, err := parseInt(field, value)
		if err != nil {
			return err
		}
		next.Hours = n
		structField = "Hours"
	case FieldGrade:
		label, err := parseGrade(value)
		if err != nil {
			return err
		}
		next.Grade = label
	default:
		return unknownField("subject", field)
	}

	if structField != "" {
		if err := checkField(next, structField, field, value); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

// ApplySemesterField sets one field of s from a user supplied value. On
// error s is left unchanged. The attached subject list is not editable.
func ApplySemesterField(s *Semester, field string, value any) error {
	next := *s
	var structField string

	switch field {
	case FieldName:
		next.Name = strings.TrimSpace(cast.ToString(value))
		structField = "Name"
	case FieldGPA:
		f, err := parseFloat(field, value)
		if err != nil {
			return err
		}
		next.GPA = f
		structField = "GPA"
	case FieldCreditHours:
		n, err := parseInt(field, value)
		if err != nil {
			return err
		}
		next.CreditHours = n
		structField = "CreditHours"
	default:
		return unknownField("semester", field)
	}

	if err := checkField(next, structField, field, value); err != nil {
		return err
	}
	*s = next
	return nil
}

// checkField runs the struct tag rules for a single field.
func checkField(v any, structField, field string, value any) error {
	err := getValidator().StructPartial(v, structField)
	if err == nil {
		return nil
	}

	rule := ""
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		rule = ve[0].Tag() + "=" + ve[0].Param()
	}

	return errors.Newf("invalid %s %q: out of range", field, cast.ToString(value)).
		Component("model").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("rule", rule).
		Build()
}

// parseFloat converts an edit value. Blank input means absent and maps to 0.
func parseFloat(field string, value any) (float64, error) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	if value == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidValue(field, value)
	}
	return f, nil
}

func parseInt(field string, value any) (int, error) {
	f, err := parseFloat(field, value)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, invalidValue(field, value)
	}
	return int(f), nil
}

// parseGrade accepts any spelling known to the grade table, or blank to
// clear the grade.
func parseGrade(value any) (string, error) {
	s := strings.TrimSpace(cast.ToString(value))
	if s == "" {
		return "", nil
	}
	e, ok := grade.Parse(s)
	if !ok {
		return "", invalidValue(FieldGrade, value)
	}
	return e.Label, nil
}

func invalidValue(field string, value any) error {
	return errors.Newf("invalid %s %q", field, fmt.Sprint(value)).
		Component("model").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

func unknownField(kind, field string) error {
	return errors.Newf("invalid %s field %q", kind, field).
		Component("model").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// Validate checks every tagged field of a Subject or Semester.
func Validate(v any) error {
	if err := getValidator().Struct(v); err != nil {
		return errors.New(err).
			Component("model").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
