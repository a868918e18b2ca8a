package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/lanBench/internal/app_events"
	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
	"github.com/rescp17/lanBench/internal/style"
)

var (
	completeRender = style.CompleteStyle.Render
	partialRender  = style.PartialStyle.Render
	failedRender   = style.FailedStyle.Render
)

// AppController is the part of the client App the view talks to.
type AppController interface {
	UIMessages() <-chan tea.Msg
	AppEvents() chan<- appevents.AppEvent
}

// maxRows keeps the live view bounded during endless runs.
const maxRows = 20

type model struct {
	appController AppController
	spinner       spinner.Model
	status        string
	rows          []string
	details       []string
	summaries     []string
	stopping      bool
	finished      bool
	err           error
}

// NewModel returns the live client view. The caller runs the App.
func NewModel(app AppController) tea.Model {
	return model{
		appController: app,
		spinner:       style.NewSpinner(),
		status:        "Starting...",
	}
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.appController.UIMessages()
		if !ok {
			return appClosedMsg{}
		}
		return msg
	}
}

type appClosedMsg struct{}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForAppMessages())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.stopping || m.finished {
				return m, tea.Quit
			}
			m.stopping = true
			m.status = "Stopping after the current transfers..."
			select {
			case m.appController.AppEvents() <- clientevents.StopMsg{}:
			default:
			}
			return m, nil
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case appClosedMsg:
		m.finished = true
		return m, tea.Quit
	}

	if m.handleAppMessage(msg) {
		return m, m.listenForAppMessages()
	}
	return m, nil
}

// handleAppMessage applies a message from the App. It reports whether msg
// came from the App, in which case the view keeps listening.
func (m *model) handleAppMessage(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case clientevents.DiscoveringMsg:
		m.status = fmt.Sprintf("Round %d: waiting for a server advertisement...", msg.Round)
	case clientevents.ServerFoundMsg:
		m.status = fmt.Sprintf("Round %d: found server %s", msg.Round, msg.Endpoint.String())
	case clientevents.RoundStartedMsg:
		m.status = fmt.Sprintf("Round %d: %d bulk + %d segmented transfers of %d bytes...",
			msg.Round, msg.BulkWorkers, msg.SegmentedWorkers, msg.Size)
	case clientevents.TransferResultMsg:
		render := statusStyleFor(msg.Session.Status)
		m.rows = appendBounded(m.rows, render(formatRow(resultCells(msg))))
		if d := resultDetail(msg); d != "" {
			m.details = appendBounded(m.details, d)
		}
	case clientevents.RoundCompleteMsg:
		m.summaries = appendBounded(m.summaries, summaryLine(msg))
	case clientevents.StatusUpdateMsg:
		m.status = msg.Message
	case clientevents.FinishedMsg:
		m.finished = true
		m.status = fmt.Sprintf("Finished after %d round(s).", msg.Rounds)
	case appevents.AppErrorMsg:
		slog.Error("Measurement failed", "error", msg.Err)
		m.err = msg.Err
		m.finished = true
	default:
		return false
	}
	return true
}

func appendBounded(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxRows {
		lines = lines[len(lines)-maxRows:]
	}
	return lines
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("LAN throughput benchmark"))
	b.WriteString("\n\n")

	if m.finished {
		fmt.Fprintf(&b, "%s\n", style.HighlightFontStyle.Render(m.status))
	} else {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.status)
	}

	if len(m.rows) > 0 {
		table := style.HeaderStyle.Render(headerRow()) + "\n" + strings.Join(m.rows, "\n")
		b.WriteString("\n")
		b.WriteString(style.BaseStyle.Render(table))
		b.WriteString("\n")
	}
	for _, s := range m.summaries {
		fmt.Fprintf(&b, "%s\n", s)
	}
	for _, d := range m.details {
		fmt.Fprintf(&b, "%s\n", style.ErrorStyle.Render(d))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", style.ErrorStyle.Render("Error: "+m.err.Error()))
	}

	if !m.finished {
		b.WriteString(style.HelpStyle.Render("\nPress q or ctrl+c to stop"))
	}
	return b.String()
}
