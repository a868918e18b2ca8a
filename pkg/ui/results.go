package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
	"github.com/rescp17/lanBench/internal/util"
	"github.com/rescp17/lanBench/pkg/transfer"
)

type column struct {
	title string
	width int
}

var resultColumns = []column{
	{"Round", 6},
	{"Worker", 7},
	{"Channel", 10},
	{"Status", 9},
	{"Received", 12},
	{"Elapsed", 10},
	{"Throughput", 16},
	{"Delivered", 10},
}

func formatRow(cells []string) string {
	var b strings.Builder
	for i, c := range resultColumns {
		if i > 0 {
			b.WriteString(" ")
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(util.PadRight(cell, c.width))
	}
	return strings.TrimRight(b.String(), " ")
}

func headerRow() string {
	titles := make([]string, len(resultColumns))
	for i, c := range resultColumns {
		titles[i] = c.title
	}
	return formatRow(titles)
}

func resultCells(msg clientevents.TransferResultMsg) []string {
	s, m := msg.Session, msg.Metrics
	delivered := "-"
	if m.HasSuccessRate {
		delivered = util.FormatPercent(m.SuccessRate)
	}
	return []string{
		strconv.Itoa(msg.Round),
		strconv.Itoa(msg.Worker),
		s.Channel.String(),
		s.Status.String(),
		util.FormatSize(int64(s.BytesReceived)),
		formatElapsed(m.Elapsed),
		util.FormatBitRate(m.BitsPerSecond),
		delivered,
	}
}

func resultDetail(msg clientevents.TransferResultMsg) string {
	if msg.Session.Err == nil {
		return ""
	}
	return fmt.Sprintf("worker %d (%s): %v", msg.Worker, msg.Session.ShortID(), msg.Session.Err)
}

func summaryLine(msg clientevents.RoundCompleteMsg) string {
	s := msg.Summary
	line := fmt.Sprintf("Round %d finished in %s: %d complete, %d partial, %d failed",
		msg.Round, formatElapsed(msg.Elapsed), s.Complete, s.Partial, s.Failed)
	if s.BulkBytes > 0 {
		line += fmt.Sprintf(" | bulk %s", util.FormatBitRate(s.BulkBitsPerSecond))
	}
	if s.SegBytes > 0 {
		line += fmt.Sprintf(" | segmented %s", util.FormatBitRate(s.SegBitsPerSecond))
	}
	return line
}

func formatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

func statusStyleFor(status transfer.Status) func(...string) string {
	switch status {
	case transfer.StatusComplete:
		return completeRender
	case transfer.StatusPartial:
		return partialRender
	default:
		return failedRender
	}
}
