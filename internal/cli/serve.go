package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	apihttp "github.com/fastkill/fastkill/internal/api/http"
	"github.com/fastkill/fastkill/internal/metrics"
)

var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var apiAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless, exposing the read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			addr := cfg.API.Addr
			if cmd.Flags().Changed("api") {
				addr = apiAddr
			}

			provider := ctx.snapshotProvider(cfg)
			server, err := newAPIServer(apihttp.Config{
				Addr:       addr,
				Controller: NewSnapshotController(provider),
			})
			if err != nil {
				return err
			}

			runCtx := cmd.Context()

			// Keep the process gauges warm between API requests.
			go func() {
				ticker := time.NewTicker(ctx.refreshInterval(cfg))
				defer ticker.Stop()
				for {
					select {
					case <-runCtx.Done():
						return
					case <-ticker.C:
						snap, err := provider.Snapshot(runCtx)
						if err != nil {
							if runCtx.Err() == nil {
								metrics.IncRefreshError()
								log.Warn("snapshot failed", "err", err)
							}
							continue
						}
						metrics.ObserveSnapshot(len(snap.Records), snap.Elapsed)
					}
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "API listening on %s\n", server.Addr())
			return server.Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&apiAddr, "api", "", "listen address for the HTTP API (overrides config)")

	return cmd
}
