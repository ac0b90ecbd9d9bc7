package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/api"
	"github.com/matzehuels/reportflow/pkg/observability"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Routes:
  GET  /healthz
  POST /api/v1/layout/validate
  POST /api/v1/reports
  GET  /api/v1/reports
  GET  /api/v1/reports/{id}
  POST /api/v1/reports/{id}/regenerate
  GET  /api/v1/reports/{id}/export?format=pdf
  POST /api/v1/export/batch

The server shuts down gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			b, err := c.openBackend(ctx, noCache)
			if err != nil {
				return err
			}
			defer b.Close()

			counters := observability.NewCounters()
			observability.Set(counters.Hooks())
			defer observability.Reset()

			exportFormat := ""
			if len(cfg.Export.Formats) > 0 {
				exportFormat = cfg.Export.Formats[0]
			}
			srv := api.New(b.Service, b.Exporter, c.Logger, api.Options{
				ReadTimeout:      cfg.Server.ReadTimeout,
				WriteTimeout:     cfg.Server.WriteTimeout,
				ShutdownTimeout:  cfg.Server.ShutdownTimeout,
				MaxBodyBytes:     cfg.Server.MaxBodyBytes,
				ExportFormat:     exportFormat,
				BatchFormats:     cfg.Export.Formats,
				BatchConcurrency: cfg.Export.Concurrency,
				Stats:            counters.Snapshot,
			})

			printSuccess("Listening on %s", addr)
			printDetail("Store: %s · Cache: %s", cfg.Store.Driver, cfg.Cache.Driver)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
