// Package subject implements the subject management commands.
package subject

import (
	"context"
	"strconv"

	"github.com/gpacalc/gpacalc/internal/calc"
	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/model"
	"github.com/gpacalc/gpacalc/internal/session"
	"github.com/spf13/cobra"
)

// Command creates the subject command tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage the subjects of the current term",
	}
	cmd.AddCommand(
		addCommand(settings),
		setCommand(settings),
		removeCommand(settings),
		resetCommand(settings),
		listCommand(settings),
	)
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var name, hours, grade string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subject with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edits := changedFields(cmd, map[string]string{
				model.FieldName:  name,
				model.FieldHours: hours,
				model.FieldGrade: grade,
			})

			// check every edit before anything is added
			probe := model.NewSubject(1)
			for _, e := range edits {
				if err := model.ApplySubjectField(&probe, e.field, e.value); err != nil {
					return err
				}
			}

			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				id := sess.Store.AddSubject()
				for _, e := range edits {
					if err := sess.Store.UpdateSubject(id, e.field, e.value); err != nil {
						return err
					}
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Added subject %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Subject name")
	cmd.Flags().StringVar(&hours, "hours", "", "Credit hours")
	cmd.Flags().StringVar(&grade, "grade", "", "Grade, as label (3.7) or letter (A-)")
	return cmd
}

type fieldEdit struct {
	field string
	value string
}

// changedFields returns the edits for flags given on the command line, in
// name, hours, grade order.
func changedFields(cmd *cobra.Command, values map[string]string) []fieldEdit {
	var out []fieldEdit
	for _, f := range []string{model.FieldName, model.FieldHours, model.FieldGrade} {
		if cmd.Flags().Changed(f) {
			out = append(out, fieldEdit{field: f, value: values[f]})
		}
	}
	return out
}

func setCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Edit one field (name, hours or grade) of a subject",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("subject", args[0])
			if err != nil {
				return err
			}
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				if _, ok := sess.Store.Subject(id); !ok {
					return cli.NotFound("subject", id)
				}
				if err := sess.Store.UpdateSubject(id, args[1], args[2]); err != nil {
					return err
				}
				s, _ := sess.Store.Subject(id)
				printSubjects(cli.NewPrinter(cmd.OutOrStdout(), settings.Locale), []model.Subject{s})
				return nil
			})
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a subject",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("subject", args[0])
			if err != nil {
				return err
			}
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				if _, ok := sess.Store.Subject(id); !ok {
					return cli.NotFound("subject", id)
				}
				sess.Store.RemoveSubject(id)
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Removed subject %d\n", id)
				return nil
			})
		},
	}
}

func resetCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace all subjects with a single default subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				sess.Store.ResetSubjects()
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Println("Subjects reset")
				return nil
			})
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List subjects with their GPA contribution",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				subjects := sess.Store.Subjects()
				p := cli.NewPrinter(cmd.OutOrStdout(), settings.Locale)
				printSubjects(p, subjects)
				p.Printf("\nGPA: %.3f\n", calc.Round3(calc.GPA(subjects)))
				return nil
			})
		},
	}
}

func printSubjects(p *cli.Printer, subjects []model.Subject) {
	rows := make([][]string, 0, len(subjects))
	for _, s := range subjects {
		g := s.Grade
		if g == "" {
			g = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.ID),
			s.Name,
			strconv.Itoa(s.Hours),
			g,
			p.Sprintf("%.1f / %.1f", calc.Round3(calc.Contribution(s)), calc.MaxContribution(s)),
		})
	}
	p.Table([]string{"ID", "NAME", "HOURS", "GRADE", "POINTS"}, rows)
}
