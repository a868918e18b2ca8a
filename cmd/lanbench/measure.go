package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/rescp17/lanBench/internal/util"
	"github.com/rescp17/lanBench/pkg/client"
	"github.com/rescp17/lanBench/pkg/ui"
)

func newMeasureCmd(opts *rootOptions) *cobra.Command {
	cfg := client.DefaultConfig()
	var (
		size        string
		interactive bool
		plain       bool
	)

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Discover a server and measure throughput against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				if err := promptConfig(cfg, &size); err != nil {
					return err
				}
			}
			n, err := util.ParseSize(size)
			if err != nil {
				return err
			}
			cfg.Size = n

			if err := opts.validate(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			adapter, _ := opts.adapter()
			app := client.NewApp(cfg, opts.transfer, adapter)

			if plain {
				if err := setupLogging(opts.logLevel, os.Stderr); err != nil {
					return err
				}
				return runPlain(cmd.Context(), app)
			}
			return runTUI(cmd.Context(), app, opts.logLevel)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&size, "size", util.FormatSize(int64(cfg.Size)), "Payload size per transfer, e.g. 500KB, 10MB, 1GB")
	flags.IntVar(&cfg.BulkWorkers, "bulk", cfg.BulkWorkers, "Parallel bulk (TCP) transfers per round")
	flags.IntVar(&cfg.SegmentedWorkers, "segmented", cfg.SegmentedWorkers, "Parallel segmented (UDP) transfers per round")
	flags.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "Number of discovery and transfer rounds (0 repeats until stopped)")
	flags.DurationVar(&cfg.RoundDelay, "round-delay", cfg.RoundDelay, "Pause between rounds")
	flags.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", cfg.DiscoveryTimeout, "Give up waiting for a server after this long (0 waits forever)")
	flags.BoolVarP(&interactive, "interactive", "i", false, "Prompt for size and transfer counts")
	flags.BoolVar(&plain, "plain", false, "Print plain lines instead of the interactive view")
	return cmd
}

func runPlain(ctx context.Context, app *client.App) error {
	printer := ui.NewPrinter(os.Stdout)
	done := make(chan struct{})
	go func() {
		printer.Consume(app.UIMessages())
		close(done)
	}()
	err := app.Run(ctx)
	<-done
	return err
}

func runTUI(ctx context.Context, app *client.App, logLevel string) error {
	f, err := os.OpenFile("debug.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close log file", "error", err)
		}
	}()
	if err := setupLogging(logLevel, f); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	appErr := make(chan error, 1)
	go func() { appErr <- app.Run(ctx) }()

	p := tea.NewProgram(ui.NewModel(app), tea.WithContext(ctx))
	_, uiErr := p.Run()

	// the view is gone, stop the app and drain what it still reports
	cancel()
	go func() {
		for range app.UIMessages() {
		}
	}()
	err = <-appErr
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running view: %w", uiErr)
	}
	return err
}

func promptConfig(cfg *client.Config, size *string) error {
	sizePrompt := promptui.Prompt{
		Label:   "Payload size (B, KB, MB, GB)",
		Default: *size,
		Validate: func(s string) error {
			_, err := util.ParseSize(s)
			return err
		},
	}
	s, err := sizePrompt.Run()
	if err != nil {
		return err
	}
	*size = s

	if cfg.BulkWorkers, err = promptCount("Parallel bulk transfers", cfg.BulkWorkers); err != nil {
		return err
	}
	if cfg.SegmentedWorkers, err = promptCount("Parallel segmented transfers", cfg.SegmentedWorkers); err != nil {
		return err
	}
	return nil
}

func promptCount(label string, def int) (int, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(def),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return errors.New("enter a whole number, 0 or more")
			}
			return nil
		},
	}
	s, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}
