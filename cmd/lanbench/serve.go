package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rescp17/lanBench/api"
	"github.com/rescp17/lanBench/pkg/server"
	"github.com/rescp17/lanBench/pkg/system"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cfg := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Advertise this host and serve bulk and segmented transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(opts.logLevel, os.Stderr); err != nil {
				return err
			}
			if err := opts.validate(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			adapter, _ := opts.adapter()

			srv := server.New(cfg, opts.transfer, adapter)
			if err := srv.Listen(); err != nil {
				slog.Error("Failed to start server", "error", err)
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Serve(ctx)
			})
			if cfg.StatsAddr != "" {
				statsAPI := api.NewAPI(srv, system.NewSystemMonitor())
				g.Go(func() error {
					return statsAPI.ListenAndServe(ctx, cfg.StatsAddr)
				})
			}
			return g.Wait()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Address to bind the service sockets to (default all)")
	flags.IntVar(&cfg.TCPPort, "tcp-port", cfg.TCPPort, "Bulk service port (0 picks a free port)")
	flags.IntVar(&cfg.UDPPort, "udp-port", cfg.UDPPort, "Segmented service port (0 picks a free port)")
	flags.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "How long to wait for in-flight transfers on shutdown (0 waits for all)")
	flags.StringVar(&cfg.StatsAddr, "stats-addr", cfg.StatsAddr, "Serve /stats and /healthz on this host:port")
	flags.StringVar(&cfg.Name, "name", cfg.Name, "Instance name announced over mDNS")
	flags.Uint64Var(&opts.transfer.MaxRequestSize, "max-request", opts.transfer.MaxRequestSize, "Largest request size served in bytes (0 for no limit)")
	return cmd
}
