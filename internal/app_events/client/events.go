package client

import (
	"time"

	appevents "github.com/rescp17/lanBench/internal/app_events"
	"github.com/rescp17/lanBench/pkg/discovery"
	"github.com/rescp17/lanBench/pkg/transfer"
)

// --- App Events (from UI to App) ---

// StopMsg asks the App to finish the current round and stop.
type StopMsg struct {
	appevents.Event
}

var _ appevents.AppEvent = StopMsg{}

// --- UI Messages (from App to UI) ---

// DiscoveringMsg is sent when a discovery cycle begins.
type DiscoveringMsg struct {
	appevents.UIMessage
	Round int
}

// ServerFoundMsg carries the endpoint accepted for this round.
type ServerFoundMsg struct {
	appevents.UIMessage
	Round    int
	Endpoint discovery.Endpoint
}

// RoundStartedMsg is sent once all workers of a round have been launched.
type RoundStartedMsg struct {
	appevents.UIMessage
	Round            int
	Size             uint64
	BulkWorkers      int
	SegmentedWorkers int
}

// TransferResultMsg reports one finished worker.
type TransferResultMsg struct {
	appevents.UIMessage
	Round   int
	Worker  int
	Session *transfer.Session
	Metrics transfer.Metrics
}

// RoundCompleteMsg is sent after every worker of a round has finished.
type RoundCompleteMsg struct {
	appevents.UIMessage
	Round   int
	Elapsed time.Duration
	Summary RoundSummary
}

// RoundSummary aggregates one round by channel.
type RoundSummary struct {
	Complete  int
	Partial   int
	Failed    int
	BulkBytes uint64
	SegBytes  uint64
	// aggregate throughput over the round's wall time
	BulkBitsPerSecond float64
	SegBitsPerSecond  float64
}

// StatusUpdateMsg is a free-form progress line.
type StatusUpdateMsg struct {
	appevents.UIMessage
	Message string
}

// FinishedMsg is sent when the App has run every requested round.
type FinishedMsg struct {
	appevents.UIMessage
	Rounds int
}

var (
	_ appevents.AppUIMessage = DiscoveringMsg{}
	_ appevents.AppUIMessage = ServerFoundMsg{}
	_ appevents.AppUIMessage = RoundStartedMsg{}
	_ appevents.AppUIMessage = TransferResultMsg{}
	_ appevents.AppUIMessage = RoundCompleteMsg{}
	_ appevents.AppUIMessage = StatusUpdateMsg{}
	_ appevents.AppUIMessage = FinishedMsg{}
)
