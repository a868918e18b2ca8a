package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	appevents "github.com/rescp17/lanBench/internal/app_events"
	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
	"github.com/rescp17/lanBench/pkg/concurrency"
	"github.com/rescp17/lanBench/pkg/discovery"
	"github.com/rescp17/lanBench/pkg/transfer"
)

// Result is the outcome of one worker.
type Result struct {
	Worker  int
	Session *transfer.Session
	Metrics transfer.Metrics
}

// App is the main application logic controller for the measuring client.
type App struct {
	cfg        Config
	transfer   *transfer.Config
	guard      *concurrency.ConcurrencyGuard
	ran        bool // guarded by guard
	discoverer discovery.Adapter
	uiMessages chan tea.Msg            // App -> UI
	appEvents  chan appevents.AppEvent // UI -> App
}

// NewApp creates a new client application instance.
func NewApp(cfg *Config, transferCfg *transfer.Config, adapter discovery.Adapter) *App {
	return &App{
		cfg:        *cfg,
		transfer:   transferCfg,
		guard:      concurrency.NewConcurrencyGuard(),
		discoverer: adapter,
		uiMessages: make(chan tea.Msg, 10),
		appEvents:  make(chan appevents.AppEvent, 1),
	}
}

// UIMessages returns the channel for the UI to listen on for updates. It is
// closed when Run returns.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// AppEvents returns a write-only channel for the UI to send events to the app.
func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// ErrAlreadyRun is returned by Run on an App whose measurement has ended.
var ErrAlreadyRun = errors.New("client app has already run")

// Run repeats discovery followed by one measurement round until the
// configured number of rounds is done or ctx is cancelled. Every round
// discovers the server afresh and starts from new sessions. Cancellation is
// a normal way to stop and is not reported as an error.
//
// An App runs once. A concurrent call returns concurrency.ErrBusy and a
// later one ErrAlreadyRun; neither touches the UI channel.
func (a *App) Run(ctx context.Context) error {
	return a.guard.Execute(func() error {
		if a.ran {
			return ErrAlreadyRun
		}
		a.ran = true
		defer close(a.uiMessages)
		return a.run(ctx)
	})
}

func (a *App) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watchEvents(ctx, cancel)

	completed := 0
	for round := 1; a.cfg.Rounds == 0 || round <= a.cfg.Rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		if err := a.runRound(ctx, round); err != nil {
			if ctx.Err() != nil {
				break
			}
			a.sendAndLogError(fmt.Sprintf("Round %d failed", round), err)
			return err
		}
		completed++

		if a.cfg.Rounds != 0 && round == a.cfg.Rounds {
			break
		}
		if !sleepCtx(ctx, a.cfg.RoundDelay) {
			break
		}
	}

	a.uiMessages <- clientevents.FinishedMsg{Rounds: completed}
	slog.Info("Measurement finished", "rounds", completed)
	return nil
}

func (a *App) watchEvents(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-a.appEvents:
			switch event.(type) {
			case clientevents.StopMsg:
				slog.Info("Stop requested")
				cancel()
				return
			}
		}
	}
}

func (a *App) runRound(ctx context.Context, round int) error {
	a.uiMessages <- clientevents.DiscoveringMsg{Round: round}

	endpoint, err := a.discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	slog.Info("Server found", "round", round, "server", endpoint.String())
	a.uiMessages <- clientevents.ServerFoundMsg{Round: round, Endpoint: endpoint}

	a.uiMessages <- clientevents.RoundStartedMsg{
		Round:            round,
		Size:             a.cfg.Size,
		BulkWorkers:      a.cfg.BulkWorkers,
		SegmentedWorkers: a.cfg.SegmentedWorkers,
	}

	started := time.Now()
	results := runWorkers(ctx, endpoint, a.cfg.Size, a.cfg.BulkWorkers, a.cfg.SegmentedWorkers, a.transfer, func(r Result) {
		a.uiMessages <- clientevents.TransferResultMsg{Round: round, Worker: r.Worker, Session: r.Session, Metrics: r.Metrics}
	})
	elapsed := time.Since(started)

	a.uiMessages <- clientevents.RoundCompleteMsg{Round: round, Elapsed: elapsed, Summary: Summarize(results, elapsed)}
	return nil
}

func (a *App) discover(ctx context.Context) (discovery.Endpoint, error) {
	if a.discoverer == nil {
		return discovery.Endpoint{}, errors.New("no discovery adapter configured")
	}
	if a.cfg.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.DiscoveryTimeout)
		defer cancel()
	}
	return a.discoverer.Discover(ctx)
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(baseMessage string, err error) {
	slog.Error(baseMessage, "error", err)
	a.uiMessages <- appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)}
}

// RunRound runs bulk bulk workers and seg segmented workers against
// endpoint concurrently and returns once every worker has finished. Bulk
// workers occupy the first indices of the result. Cancelling ctx makes the
// remaining workers finish early with a failed session.
func RunRound(ctx context.Context, endpoint discovery.Endpoint, size uint64, bulk, seg int, cfg *transfer.Config) []Result {
	return runWorkers(ctx, endpoint, size, bulk, seg, cfg, nil)
}

func runWorkers(ctx context.Context, endpoint discovery.Endpoint, size uint64, bulk, seg int, cfg *transfer.Config, report func(Result)) []Result {
	results := make([]Result, bulk+seg)
	var g errgroup.Group

	for i := range results {
		g.Go(func() error {
			var session *transfer.Session
			if i < bulk {
				session = transfer.FetchBulk(ctx, endpoint.BulkAddr(), size, cfg)
			} else {
				session = transfer.FetchSegmented(ctx, endpoint.SegmentedAddr(), size, cfg)
			}
			transfer.LogSession("client", session)

			// each worker owns exactly one slot
			results[i] = Result{Worker: i, Session: session, Metrics: transfer.Measure(session)}
			if report != nil {
				report(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
