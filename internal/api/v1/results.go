package api

import (
	"net/http"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/labstack/echo/v4"
)

// GPAResponse is the GPA of the subject list with its breakdown.
type GPAResponse struct {
	Result    calc.Result    `json:"result"`
	Breakdown calc.Breakdown `json:"breakdown"`
}

// CGPAResponse is the CGPA of the semester list with its running trend.
type CGPAResponse struct {
	Result calc.Result       `json:"result"`
	Trend  []calc.TrendPoint `json:"trend"`
}

// BackgroundRequest sets the background preference.
type BackgroundRequest struct {
	Visible *bool `json:"visible"`
}

// BackgroundResponse reports the background preference.
type BackgroundResponse struct {
	Visible bool `json:"visible"`
}

func (c *Controller) initResultRoutes() {
	c.Group.GET("/gpa", c.GetGPA)
	c.Group.GET("/cgpa", c.GetCGPA)
	c.Group.GET("/background", c.GetBackground)
	c.Group.PUT("/background", c.SetBackground)
	c.Group.POST("/background/toggle", c.ToggleBackground)
}

// GetGrades returns the grade table in descending order.
func (c *Controller) GetGrades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, grade.Entries())
}

// GetGPA returns the GPA of the current subjects.
func (c *Controller) GetGPA(ctx echo.Context) error {
	b := calc.BreakdownOf(c.Store.Subjects())
	return ctx.JSON(http.StatusOK, GPAResponse{
		Result:    calc.Summarize(b.GPA),
		Breakdown: b,
	})
}

// GetCGPA returns the CGPA of the current semesters.
func (c *Controller) GetCGPA(ctx echo.Context) error {
	semesters := c.Store.Semesters()
	return ctx.JSON(http.StatusOK, CGPAResponse{
		Result: calc.Summarize(calc.CGPA(semesters)),
		Trend:  calc.Trend(semesters),
	})
}

// GetBackground returns the background preference.
func (c *Controller) GetBackground(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, BackgroundResponse{Visible: c.Store.BackgroundVisible()})
}

// SetBackground sets the background preference.
func (c *Controller) SetBackground(ctx echo.Context) error {
	var req BackgroundRequest
	if err := ctx.Bind(&req); err != nil || req.Visible == nil {
		return c.HandleError(ctx, errors.Newf("body must be {\"visible\": true|false}").
			Component("api").
			Category(errors.CategoryValidation).
			Build(), "Invalid background request", 0)
	}
	c.Store.SetBackground(*req.Visible)
	return ctx.JSON(http.StatusOK, BackgroundResponse{Visible: *req.Visible})
}

// ToggleBackground flips the background preference.
func (c *Controller) ToggleBackground(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, BackgroundResponse{Visible: c.Store.ToggleBackground()})
}
