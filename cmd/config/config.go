// Package config implements the configuration file commands.
package config

import (
	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// redacted replaces secrets in config show output.
const redacted = "[redacted]"

// Command creates the config command tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(settings), showCommand(settings), saveCommand(settings))
	return cmd
}

func initCommand(settings *conf.Settings) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{cli.AnnotationSkipSettings: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil || path == "" {
				if path, err = conf.DefaultConfigFile(); err != nil {
					return err
				}
			}
			if err := conf.CreateDefaultConfig(path, force); err != nil {
				return err
			}
			cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *settings
			if shown.Storage.DSN != "" {
				shown.Storage.DSN = redacted
			}
			if shown.Sentry.DSN != "" {
				shown.Sentry.DSN = redacted
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return errors.New(err).
					Component("cli").
					Category(errors.CategoryConfiguration).
					Context("operation", "marshal-config").
					Build()
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func saveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "Write the effective configuration, including flag and environment overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAMLConfig(args[0], settings); err != nil {
				return err
			}
			cli.NewPrinter(cmd.OutOrStdout(), settings.Locale).Printf("Wrote %s\n", args[0])
			return nil
		},
	}
}
