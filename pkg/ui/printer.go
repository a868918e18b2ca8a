package ui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/lanBench/internal/app_events"
	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
)

// Printer writes App messages as plain lines, for pipes and logs.
type Printer struct {
	w             io.Writer
	headerPrinted bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Consume prints every message until msgs is closed.
func (p *Printer) Consume(msgs <-chan tea.Msg) {
	for msg := range msgs {
		p.Print(msg)
	}
}

func (p *Printer) Print(msg tea.Msg) {
	switch msg := msg.(type) {
	case clientevents.DiscoveringMsg:
		fmt.Fprintf(p.w, "round %d: waiting for a server advertisement\n", msg.Round)
	case clientevents.ServerFoundMsg:
		fmt.Fprintf(p.w, "round %d: server %s\n", msg.Round, msg.Endpoint.String())
	case clientevents.RoundStartedMsg:
		fmt.Fprintf(p.w, "round %d: %d bulk + %d segmented transfers of %d bytes\n",
			msg.Round, msg.BulkWorkers, msg.SegmentedWorkers, msg.Size)
	case clientevents.TransferResultMsg:
		if !p.headerPrinted {
			fmt.Fprintln(p.w, headerRow())
			p.headerPrinted = true
		}
		fmt.Fprintln(p.w, formatRow(resultCells(msg)))
		if d := resultDetail(msg); d != "" {
			fmt.Fprintf(p.w, "  %s\n", d)
		}
	case clientevents.RoundCompleteMsg:
		fmt.Fprintln(p.w, summaryLine(msg))
		p.headerPrinted = false
	case clientevents.StatusUpdateMsg:
		fmt.Fprintln(p.w, msg.Message)
	case clientevents.FinishedMsg:
		fmt.Fprintf(p.w, "finished after %d round(s)\n", msg.Rounds)
	case appevents.AppErrorMsg:
		fmt.Fprintf(p.w, "error: %v\n", msg.Err)
	}
}
