// Package serve implements the HTTP API server command.
package serve

import (
	"context"

	"github.com/gpacalc/gpacalc/internal/api"
	"github.com/gpacalc/gpacalc/internal/cli"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/session"
	"github.com/spf13/cobra"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var listen string
	var metrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				settings.WebServer.Listen = listen
			}
			if cmd.Flags().Changed("metrics") {
				settings.Metrics.Enabled = metrics
			}

			cfg := api.ConfigFromSettings(settings)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return cli.WithSession(cmd, settings, func(ctx context.Context, sess *session.Session) error {
				srv, err := api.New(cfg, sess.Store, api.WithMetrics(sess.Metrics))
				if err != nil {
					return err
				}

				sess.Logger().Info("Starting API server",
					logger.String("listen", cfg.Listen),
					logger.Bool("metrics", cfg.MetricsEnabled))
				return srv.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", conf.DefaultListen, "Listen address, host:port")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics on /metrics")
	return cmd
}
