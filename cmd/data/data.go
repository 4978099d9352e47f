// Package data implements export, import and clearing of stored state.
package data

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/session"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/spf13/cobra"
)

// Command creates the data command tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Export, import or clear stored data",
	}
	cmd.AddCommand(
		exportCommand(settings),
		importCommand(settings),
		clearCommand(settings),
	)
	return cmd
}

func exportCommand(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all stored data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				data, err := json.MarshalIndent(sess.Store.Snapshot(), "", "  ")
				if err != nil {
					return errors.New(err).
						Component("cli").
						Category(errors.CategoryGeneric).
						Context("operation", "export").
						Build()
				}
				data = append(data, '\n')

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o600); err != nil {
					return errors.New(err).
						Component("cli").
						Category(errors.CategoryFileIO).
						Context("path", output).
						Build()
				}
				cli.NewPrinter(cmd.ErrOrStderr(), settings.Locale).Printf("Exported to %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, stdout when empty")
	return cmd
}

func importCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace stored data with a previous export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return cli.WithSession(cmd, settings, func(_ context.Context, sess *session.Session) error {
				if err := sess.Store.Restore(snap); err != nil {
					return err
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Imported %d subjects and %d semesters\n",
					len(sess.Store.Subjects()), len(sess.Store.Semesters()))
				return nil
			})
		},
	}
}

// readSnapshot decodes an export from path, or from stdin when path is "-".
func readSnapshot(stdin io.Reader, path string) (store.Snapshot, error) {
	var snap store.Snapshot

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return snap, errors.New(err).
				Component("cli").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return snap, errors.New(err).
			Component("cli").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	return snap, nil
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored data and restore the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.Newf("refusing to clear stored data without --yes").
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}
			return cli.WithSession(cmd, settings, func(ctx context.Context, sess *session.Session) error {
				if err := sess.Store.Clear(ctx); err != nil {
					return err
				}
				cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Println("Stored data cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
