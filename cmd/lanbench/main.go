package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rescp17/lanBench/pkg/discovery"
	"github.com/rescp17/lanBench/pkg/transfer"
)

// options shared by every subcommand
type rootOptions struct {
	logLevel  string
	discovery string
	disc      *discovery.Config
	transfer  *transfer.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{
		disc:     discovery.DefaultConfig(),
		transfer: transfer.DefaultConfig(),
	}

	cmd := &cobra.Command{
		Use:   "lanbench",
		Short: "Measure TCP and UDP throughput between hosts on a local network",
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.discovery, "discovery", "broadcast", "Discovery mechanism: broadcast or mdns")
	flags.IntVar(&opts.disc.Port, "discovery-port", opts.disc.Port, "Well-known port for broadcast discovery")
	flags.DurationVar(&opts.disc.Interval, "interval", opts.disc.Interval, "Interval between advertisements")
	flags.StringVar(&opts.disc.BroadcastAddr, "broadcast-addr", opts.disc.BroadcastAddr, "Destination of advertisements")
	flags.IntVar(&opts.transfer.DatagramSize, "datagram-size", opts.transfer.DatagramSize, "Size of each segmented datagram including its header")
	flags.DurationVar(&opts.transfer.IdleTimeout, "idle-timeout", opts.transfer.IdleTimeout, "Silence after which a segmented transfer is considered finished")
	flags.IntVar(&opts.transfer.SocketBufferSize, "socket-buffer", opts.transfer.SocketBufferSize, "Kernel socket buffer size in bytes (0 keeps the system default)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMeasureCmd(opts))

	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

// validate checks the shared configuration before any socket is opened.
func (o *rootOptions) validate() error {
	if err := o.disc.Validate(); err != nil {
		return fmt.Errorf("invalid discovery configuration: %w", err)
	}
	if err := o.transfer.Validate(); err != nil {
		return fmt.Errorf("invalid transfer configuration: %w", err)
	}
	if _, err := o.adapter(); err != nil {
		return err
	}
	return nil
}

func (o *rootOptions) adapter() (discovery.Adapter, error) {
	switch strings.ToLower(o.discovery) {
	case "broadcast":
		return discovery.NewBroadcastAdapter(o.disc), nil
	case "mdns":
		return discovery.NewMDNSAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown discovery mechanism %q", o.discovery)
	}
}

func setupLogging(level string, w io.Writer) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
