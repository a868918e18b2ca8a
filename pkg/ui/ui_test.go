package ui

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevents "github.com/rescp17/lanBench/internal/app_events"
	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
	"github.com/rescp17/lanBench/pkg/discovery"
	"github.com/rescp17/lanBench/pkg/transfer"
)

type fakeController struct {
	messages chan tea.Msg
	events   chan appevents.AppEvent
}

func newFakeController() *fakeController {
	return &fakeController{messages: make(chan tea.Msg, 10), events: make(chan appevents.AppEvent, 1)}
}

func (f *fakeController) UIMessages() <-chan tea.Msg { return f.messages }
func (f *fakeController) AppEvents() chan<- appevents.AppEvent { return f.events }

func segmentedResult() clientevents.TransferResultMsg {
	s := transfer.NewSession(transfer.ChannelSegmented, 3000)
	s.Start = time.Now()
	s.End = s.Start.Add(time.Second)
	s.BytesReceived = 1997
	s.SegmentsReceived = 2
	s.SegmentsExpected = 3
	s.Finish(transfer.StatusPartial, nil)
	return clientevents.TransferResultMsg{Round: 1, Worker: 2, Session: s, Metrics: transfer.Measure(s)}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	msgs := make(chan tea.Msg, 10)
	msgs <- clientevents.ServerFoundMsg{Round: 1, Endpoint: discovery.Endpoint{Addr: net.IPv4(10, 0, 0, 5), UDPPort: 4000, TCPPort: 4001}}
	msgs <- segmentedResult()
	msgs <- clientevents.RoundCompleteMsg{Round: 1, Elapsed: time.Second, Summary: clientevents.RoundSummary{Partial: 1, SegBytes: 1997, SegBitsPerSecond: 15976}}
	msgs <- clientevents.FinishedMsg{Rounds: 1}
	close(msgs)
	p.Consume(msgs)

	out := buf.String()
	assert.Contains(t, out, "10.0.0.5 udp/4000 tcp/4001")
	assert.Contains(t, out, "Throughput")
	assert.Contains(t, out, "segmented")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "66.67%")
	assert.Contains(t, out, "15.98 Kbit/s")
	assert.Contains(t, out, "1 partial")
	assert.True(t, strings.HasSuffix(out, "finished after 1 round(s)\n"))
}

func TestResultRowAlignment(t *testing.T) {
	header := headerRow()
	row := formatRow(resultCells(segmentedResult()))
	assert.Equal(t, strings.Index(header, "Throughput"), strings.Index(row, "15.98 Kbit/s"))
}

func TestModel_ShowsResultsAndStops(t *testing.T) {
	ctrl := newFakeController()
	var m tea.Model = NewModel(ctrl)

	m, cmd := m.Update(clientevents.DiscoveringMsg{Round: 1})
	require.NotNil(t, cmd, "the view keeps listening after an app message")
	assert.Contains(t, m.View(), "waiting for a server advertisement")

	m, _ = m.Update(segmentedResult())
	m, _ = m.Update(clientevents.RoundCompleteMsg{Round: 1, Elapsed: time.Second, Summary: clientevents.RoundSummary{Partial: 1}})
	view := m.View()
	assert.Contains(t, view, "66.67%")
	assert.Contains(t, view, "Round 1 finished")

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd, "the first stop request waits for the app")
	select {
	case ev := <-ctrl.events:
		assert.IsType(t, clientevents.StopMsg{}, ev)
	default:
		t.Fatal("stop request was not sent to the app")
	}
	assert.Contains(t, m.View(), "Stopping")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_QuitsWhenAppCloses(t *testing.T) {
	ctrl := newFakeController()
	var m tea.Model = NewModel(ctrl)

	m, _ = m.Update(appevents.AppErrorMsg{Err: errors.New("no server")})
	assert.Contains(t, m.View(), "no server")

	close(ctrl.messages)
	listen := m.(model).listenForAppMessages()
	_, cmd := m.Update(listen())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
