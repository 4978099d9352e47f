package cmd

import (
	"github.com/gpacalc/gpacalc/cmd/config"
	"github.com/gpacalc/gpacalc/cmd/data"
	"github.com/gpacalc/gpacalc/cmd/result"
	"github.com/gpacalc/gpacalc/cmd/semester"
	"github.com/gpacalc/gpacalc/cmd/serve"
	"github.com/gpacalc/gpacalc/cmd/subject"
	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/spf13/cobra"
)

// flags holds the global command line overrides.
type flags struct {
	configFile string
	debug      bool
	locale     string
	backend    string
	dataPath   string
}

// RootCommand creates and returns the root command. settings is filled in
// before any sub-command runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "gpacalc",
		Short:         "GPA and CGPA calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &f)

	subcommands := []*cobra.Command{
		subject.Command(settings),
		semester.Command(settings),
		data.Command(settings),
		config.Command(settings),
		serve.Command(settings),
	}
	subcommands = append(subcommands, result.Commands(settings)...)
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[cli.AnnotationSkipSettings] != "" {
			return nil
		}
		return initialize(cmd, settings, &f)
	}

	return rootCmd
}

// initialize loads settings, applies flag overrides and validates the
// result. Flags take precedence over the config file and environment.
func initialize(cmd *cobra.Command, settings *conf.Settings, f *flags) error {
	loaded, err := conf.Load(f.configFile)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("debug") {
		loaded.Debug = f.debug
	}
	if fs.Changed("locale") {
		loaded.Locale = f.locale
	}
	if fs.Changed("backend") {
		loaded.Storage.Backend = f.backend
	}
	if fs.Changed("data") {
		loaded.Storage.Path = f.dataPath
	}

	if err := conf.ValidateSettings(loaded); err != nil {
		return err
	}
	*settings = *loaded
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, f *flags) {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "Path to config file")
	pf.BoolVarP(&f.debug, "debug", "d", false, "Enable debug output")
	pf.StringVar(&f.locale, "locale", "", "Locale for number formatting, e.g. en or de")
	pf.StringVar(&f.backend, "backend", "", "Storage backend: file, sqlite, mysql or memory")
	pf.StringVar(&f.dataPath, "data", "", "Storage directory or database file")
}
