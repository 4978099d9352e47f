package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/labstack/echo/v4"
)

var semesterFieldOrder = []string{model.FieldName, model.FieldGPA, model.FieldCreditHours}

// SemestersResponse lists semesters with the resulting CGPA.
type SemestersResponse struct {
	Semesters []model.Semester `json:"semesters"`
	CGPA      calc.Result      `json:"cgpa"`
}

// DeriveRequest optionally carries the subjects to derive from. Without
// it the current subject list is used.
type DeriveRequest struct {
	Subjects []model.Subject `json:"subjects"`
}

// DeriveResponse reports the derived GPA and the updated semester.
type DeriveResponse struct {
	GPA      float64        `json:"gpa"`
	Semester model.Semester `json:"semester"`
}

func (c *Controller) initSemesterRoutes() {
	c.Group.GET("/semesters", c.GetSemesters)
	c.Group.POST("/semesters", c.AddSemester)
	c.Group.POST("/semesters/reset", c.ResetSemesters)
	c.Group.GET("/semesters/:id", c.GetSemester)
	c.Group.PATCH("/semesters/:id", c.UpdateSemester)
	c.Group.DELETE("/semesters/:id", c.RemoveSemester)
	c.Group.POST("/semesters/:id/derive", c.DeriveSemester)
}

// GetSemesters returns all semesters and the CGPA.
func (c *Controller) GetSemesters(ctx echo.Context) error {
	semesters := c.Store.Semesters()
	return ctx.JSON(http.StatusOK, SemestersResponse{
		Semesters: semesters,
		CGPA:      calc.Summarize(calc.CGPA(semesters)),
	})
}

// GetSemester returns one semester.
func (c *Controller) GetSemester(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid semester id", 0)
	}
	s, ok := c.Store.Semester(id)
	if !ok {
		return c.HandleError(ctx, notFound("semester", id), "Semester not found", 0)
	}
	return ctx.JSON(http.StatusOK, s)
}

// AddSemester appends a default semester.
func (c *Controller) AddSemester(ctx echo.Context) error {
	id := c.Store.AddSemester()
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateSemester applies a JSON object of field values to one semester.
// Either every field is applied or none is.
func (c *Controller) UpdateSemester(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid semester id", 0)
	}
	current, ok := c.Store.Semester(id)
	if !ok {
		return c.HandleError(ctx, notFound("semester", id), "Semester not found", 0)
	}

	fields, err := decodeFields(ctx, semesterFieldOrder)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid semester update", 0)
	}
	for _, f := range fields {
		if err := model.ApplySemesterField(&current, f.name, f.value); err != nil {
			return c.HandleError(ctx, err, "Invalid semester update", 0)
		}
	}
	for _, f := range fields {
		if err := c.Store.UpdateSemester(id, f.name, f.value); err != nil {
			return c.HandleError(ctx, err, "Invalid semester update", 0)
		}
	}

	updated, _ := c.Store.Semester(id)
	return ctx.JSON(http.StatusOK, updated)
}

// RemoveSemester deletes one semester.
func (c *Controller) RemoveSemester(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid semester id", 0)
	}
	if _, ok := c.Store.Semester(id); !ok {
		return c.HandleError(ctx, notFound("semester", id), "Semester not found", 0)
	}
	c.Store.RemoveSemester(id)
	return ctx.NoContent(http.StatusNoContent)
}

// ResetSemesters restores the default semester list.
func (c *Controller) ResetSemesters(ctx echo.Context) error {
	c.Store.ResetSemesters()
	return c.GetSemesters(ctx)
}

// DeriveSemester sets a semester's GPA from a subject list.
func (c *Controller) DeriveSemester(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid semester id", 0)
	}

	var req DeriveRequest
	if err := json.NewDecoder(ctx.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context("operation", "decode-body").
			Build(), "Invalid derive request", 0)
	}
	for i := range req.Subjects {
		if err := model.Validate(&req.Subjects[i]); err != nil {
			return c.HandleError(ctx, err, "Invalid subject in derive request", 0)
		}
	}
	subjects := req.Subjects
	if subjects == nil {
		subjects = c.Store.Subjects()
	}

	gpa, ok := c.Store.DeriveSemesterGPA(id, subjects)
	if !ok {
		return c.HandleError(ctx, notFound("semester", id), "Semester not found", 0)
	}
	semester, _ := c.Store.Semester(id)
	return ctx.JSON(http.StatusOK, DeriveResponse{GPA: calc.Round3(gpa), Semester: semester})
}
