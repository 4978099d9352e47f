// Package semester implements the semester management commands.
package semester

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

// Command creates the semester command tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semester",
		Short: "Manage past semesters for the cumulative GPA",
	}
	cmd.AddCommand(
		addCommand(settings),
		setCommand(settings),
		creditsCommand(settings),
		removeCommand(settings),
		resetCommand(settings),
		listCommand(settings),
		deriveCommand(settings),
	)
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var name, gpa, credits string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a semester with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var edits [][2]string
			for _, e := range [][2]string{
				{model.FieldName, name},
				{model.FieldGPA, gpa},
				{model.FieldCreditHours, credits},
			} {
				if cmd.Flags().Changed(flagFor(e[0])) {
					edits = append(edits, e)
				}
			}

			probe := model.NewSemester(1)
			for _, e := range edits {
				if err := model.ApplySemesterField(&probe, e[0], e[1]); err != nil {
					return err
				}
			}

			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				id := sess.Store.AddSemester()
				for _, e := range edits {
					if err := sess.Store.UpdateSemester(id, e[0], e[1]); err != nil {
						return err
					}
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Added semester %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Semester name")
	cmd.Flags().StringVar(&gpa, "gpa", "", "Semester GPA, 0 to 4")
	cmd.Flags().StringVar(&credits, "credits", "", "Total credit hours")
	return cmd
}

// flagFor maps a field name to its add flag.
func flagFor(field string) string {
	if field == model.FieldCreditHours {
		return "credits"
	}
	return field
}

func setCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Edit one field (name, gpa or creditHours) of a semester",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("semester", args[0])
			if err != nil {
				return err
			}
			return update(cmd, settings, id, args[1], args[2])
		},
	}
}

func creditsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "credits <id> <hours>",
		Short: "Set the credit hours of a semester",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("semester", args[0])
			if err != nil {
				return err
			}
			return update(cmd, settings, id, model.FieldCreditHours, args[1])
		},
	}
}

func update(cmd *cobra.Command, settings *conf.Settings, id int, field, value string) error {
	return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
		if _, ok := sess.Store.Semester(id); !ok {
			return cli.NotFound("semester", id)
		}
		if err := sess.Store.UpdateSemester(id, field, value); err != nil {
			return err
		}
		s, _ := sess.Store.Semester(id)
		printSemesters(cli.NewPrinter(cmd.OutOrStdout(), settings.Locale), []model.Semester{s})
		return nil
	})
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a semester",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("semester", args[0])
			if err != nil {
				return err
			}
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				if _, ok := sess.Store.Semester(id); !ok {
					return cli.NotFound("semester", id)
				}
				sess.Store.RemoveSemester(id)
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Removed semester %d\n", id)
				return nil
			})
		},
	}
}

func resetCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace all semesters with a single default semester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				sess.Store.ResetSemesters()
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Println("Semesters reset")
				return nil
			})
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List semesters with the cumulative GPA",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				semesters := sess.Store.Semesters()
				p := cli.NewPrinter(cmd.OutOrStdout(), settings.Locale)
				printSemesters(p, semesters)
				p.Printf("\nCGPA: %.3f\n", calc.Round3(calc.CGPA(semesters)))
				return nil
			})
		},
	}
}

func deriveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <id>",
		Short: "Set a semester's GPA from the current subject list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseID("semester", args[0])
			if err != nil {
				return err
			}
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				gpa, ok := sess.Store.DeriveSemesterGPA(id, sess.Store.Subjects())
				if !ok {
					return cli.NotFound("semester", id)
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).
					Printf("Semester %d GPA set to %.3f\n", id, calc.Round3(gpa))
				return nil
			})
		},
	}
}

func printSemesters(p *cli.Printer, semesters []model.Semester) {
	rows := make([][]string, 0, len(semesters))
	for _, s := range semesters {
		source := "entered"
		if s.Subjects != nil {
			source = p.Sprintf("derived from %d subjects", len(s.Subjects))
		}
		rows = append(rows, []string{
			strconv.Itoa(s.ID),
			s.Name,
			p.Sprintf("%.3f", calc.Round3(s.GPA)),
			strconv.Itoa(s.CreditHours),
			source,
		})
	}
	p.Table([]string{"ID", "NAME", "GPA", "CREDITS", "SOURCE"}, rows)
}
