package api

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/labstack/echo/v4"
)

// subjectFieldOrder fixes the order in which PATCH fields are applied.
var subjectFieldOrder = []string{model.FieldName, model.FieldHours, model.FieldGrade}

// SubjectView is a subject with its computed contribution.
type SubjectView struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Hours           int     `json:"hours"`
	Grade           string  `json:"grade"`
	Contribution    float64 `json:"contribution"`
	MaxContribution float64 `json:"maxContribution"`
}

// SubjectsResponse lists subjects with the resulting GPA.
type SubjectsResponse struct {
	Subjects []SubjectView `json:"subjects"`
	GPA      calc.Result   `json:"gpa"`
}

// CreatedResponse is returned by add endpoints.
type CreatedResponse struct {
	ID int `json:"id"`
}

func (c *Controller) initSubjectRoutes() {
	c.Group.GET("/subjects", c.GetSubjects)
	c.Group.POST("/subjects", c.AddSubject)
	c.Group.POST("/subjects/reset", c.ResetSubjects)
	c.Group.GET("/subjects/:id", c.GetSubject)
	c.Group.PATCH("/subjects/:id", c.UpdateSubject)
	c.Group.DELETE("/subjects/:id", c.RemoveSubject)
}

func subjectView(s model.Subject) SubjectView {
	return SubjectView{
		ID:              s.ID,
		Name:            s.Name,
		Hours:           s.Hours,
		Grade:           s.Grade,
		Contribution:    calc.Round3(calc.Contribution(s)),
		MaxContribution: calc.MaxContribution(s),
	}
}

// GetSubjects returns all subjects and the GPA.
func (c *Controller) GetSubjects(ctx echo.Context) error {
	subjects := c.Store.Subjects()
	views := make([]SubjectView, 0, len(subjects))
	for _, s := range subjects {
		views = append(views, subjectView(s))
	}
	return ctx.JSON(http.StatusOK, SubjectsResponse{
		Subjects: views,
		GPA:      calc.Summarize(calc.GPA(subjects)),
	})
}

// GetSubject returns one subject.
func (c *Controller) GetSubject(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid subject id", 0)
	}
	s, ok := c.Store.Subject(id)
	if !ok {
		return c.HandleError(ctx, notFound("subject", id), "Subject not found", 0)
	}
	return ctx.JSON(http.StatusOK, subjectView(s))
}

// AddSubject appends a default subject.
func (c *Controller) AddSubject(ctx echo.Context) error {
	id := c.Store.AddSubject()
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateSubject applies a JSON object of field values to one subject.
// Either every field is applied or none is.
func (c *Controller) UpdateSubject(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid subject id", 0)
	}
	current, ok := c.Store.Subject(id)
	if !ok {
		return c.HandleError(ctx, notFound("subject", id), "Subject not found", 0)
	}

	fields, err := decodeFields(ctx, subjectFieldOrder)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid subject update", 0)
	}

	// dry run on a copy so a bad field leaves the stored subject untouched
	for _, f := range fields {
		if err := model.ApplySubjectField(&current, f.name, f.value); err != nil {
			return c.HandleError(ctx, err, "Invalid subject update", 0)
		}
	}
	for _, f := range fields {
		if err := c.Store.UpdateSubject(id, f.name, f.value); err != nil {
			return c.HandleError(ctx, err, "Invalid subject update", 0)
		}
	}

	updated, _ := c.Store.Subject(id)
	return ctx.JSON(http.StatusOK, subjectView(updated))
}

// RemoveSubject deletes one subject.
func (c *Controller) RemoveSubject(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid subject id", 0)
	}
	if _, ok := c.Store.Subject(id); !ok {
		return c.HandleError(ctx, notFound("subject", id), "Subject not found", 0)
	}
	c.Store.RemoveSubject(id)
	return ctx.NoContent(http.StatusNoContent)
}

// ResetSubjects restores the default subject list.
func (c *Controller) ResetSubjects(ctx echo.Context) error {
	c.Store.ResetSubjects()
	return c.GetSubjects(ctx)
}

type fieldValue struct {
	name  string
	value any
}

// decodeFields reads a JSON object body and returns its entries in order.
// Keys outside order are rejected.
func decodeFields(ctx echo.Context, order []string) ([]fieldValue, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(ctx.Request().Body).Decode(&body); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context("operation", "decode-body").
			Build()
	}
	if len(body) == 0 {
		return nil, errors.Newf("request body must set at least one field").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	fields := make([]fieldValue, 0, len(body))
	for _, name := range order {
		raw, ok := body[name]
		if !ok {
			continue
		}
		delete(body, name)

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, errors.New(err).
				Component("api").
				Category(errors.CategoryValidation).
				Context("field", name).
				Build()
		}
		fields = append(fields, fieldValue{name: name, value: value})
	}
	if len(body) > 0 {
		unknown := slices.Sorted(maps.Keys(body))
		return nil, errors.Newf("unknown field %q", unknown[0]).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return fields, nil
}
