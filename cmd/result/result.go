// Package result implements the commands that report computed results.
package result

import (
	"context"
	"strconv"
	"strings"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/grade"
	"github.com/gpacalc/gpacalc/internal/session"
	"github.com/gpacalc/gpacalc/pkg/spinner"
	"github.com/spf13/cobra"
)

// Commands returns the top level result commands.
func Commands(settings *conf.Settings) []*cobra.Command {
	return []*cobra.Command{
		gpaCommand(settings),
		cgpaCommand(settings),
		gradesCommand(settings),
		backgroundCommand(settings),
	}
}

// reveal pauses for the configured delay before a result is printed.
func reveal(ctx context.Context, cmd *cobra.Command, settings *conf.Settings, instant bool) error {
	if instant {
		return nil
	}
	return spinner.NewSpinner(cmd.ErrOrStderr()).Wait(ctx, settings.Calculator.RevealDelay)
}

func printResult(p *cli.Printer, title string, r calc.Result) {
	p.Printf("%s: %.3f (%s, %s)\n", title, r.GPA, r.Letter, r.Label)
	p.Printf("Performance: %s\n", r.Performance)
	p.Printf("Percentage: %.1f%%\n", r.Percentage)
}

func gpaCommand(settings *conf.Settings) *cobra.Command {
	var breakdown, instant bool

	cmd := &cobra.Command{
		Use:   "gpa",
		Short: "Calculate the GPA of the current subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(ctx context.Context, sess *session.Session) error {
				subjects := sess.Store.Subjects()
				if err := reveal(ctx, cmd, settings, instant); err != nil {
					return err
				}

				p := cli.NewPrinter(cmd.OutOrStdout(), settings.Locale)
				printResult(p, "GPA", calc.Summarize(calc.GPA(subjects)))
				if !breakdown {
					return nil
				}

				b := calc.BreakdownOf(subjects)
				rows := make([][]string, 0, len(b.Subjects))
				for _, sh := range b.Subjects {
					rows = append(rows, []string{
						strconv.Itoa(sh.SubjectID),
						sh.Name,
						strconv.Itoa(sh.Hours),
						sh.Grade,
						p.Sprintf("%.1f / %.1f", sh.Contribution, sh.MaxContribution),
					})
				}
				p.Println()
				p.Table([]string{"ID", "NAME", "HOURS", "GRADE", "POINTS"}, rows)
				if b.Best != nil {
					p.Printf("\nBest: %s (%.1f)\n", b.Best.Name, b.Best.Contribution)
				}
				if b.Worst != nil {
					p.Printf("Weakest: %s (%.1f)\n", b.Worst.Name, b.Worst.Contribution)
				}
				p.Printf("Mean grade percentage: %.1f%%\n", b.MeanPercentage)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "Show per-subject contributions")
	cmd.Flags().BoolVar(&instant, "instant", false, "Print without the reveal delay")
	return cmd
}

func cgpaCommand(settings *conf.Settings) *cobra.Command {
	var trend, instant bool

	cmd := &cobra.Command{
		Use:   "cgpa",
		Short: "Calculate the cumulative GPA of all semesters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(ctx context.Context, sess *session.Session) error {
				semesters := sess.Store.Semesters()
				if err := reveal(ctx, cmd, settings, instant); err != nil {
					return err
				}

				p := cli.NewPrinter(cmd.OutOrStdout(), settings.Locale)
				printResult(p, "CGPA", calc.Summarize(calc.CGPA(semesters)))
				if !trend {
					return nil
				}

				points := calc.Trend(semesters)
				rows := make([][]string, 0, len(points))
				for _, tp := range points {
					rows = append(rows, []string{
						strconv.Itoa(tp.SemesterID),
						tp.Name,
						p.Sprintf("%.3f", calc.Round3(tp.GPA)),
						p.Sprintf("%.3f", tp.CGPA),
					})
				}
				p.Println()
				p.Table([]string{"ID", "NAME", "GPA", "CGPA"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&trend, "trend", false, "Show the running CGPA per semester")
	cmd.Flags().BoolVar(&instant, "instant", false, "Print without the reveal delay")
	return cmd
}

func gradesCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "grades",
		Short: "Show the grade scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := cli.NewPrinter(cmd.OutOrStdout(), settings.Locale)
			entries := grade.Entries()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Label,
					e.Letter,
					p.Sprintf("%.1f", e.Points),
					p.Sprintf("%.0f%%", e.Percentage),
				})
			}
			p.Table([]string{"LABEL", "LETTER", "POINTS", "PERCENT"}, rows)
			return nil
		},
	}
}

func backgroundCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:       "background [on|off|toggle]",
		Short:     "Show or change the background display preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				if len(args) == 1 {
					switch strings.ToLower(args[0]) {
					case "on":
						sess.Store.SetBackground(true)
					case "off":
						sess.Store.SetBackground(false)
					case "toggle":
						sess.Store.ToggleBackground()
					default:
						return errors.Newf("invalid background value %q, want on, off or toggle", args[0]).
							Component("cli").
							Category(errors.CategoryValidation).
							Build()
					}
				}

				state := "off"
				if sess.Store.BackgroundVisible() {
					state = "on"
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Background: %s\n", state)
				return nil
			})
		},
	}
}
