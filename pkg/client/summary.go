package client

import (
	"time"

	clientevents "github.com/rescp17/lanBench/internal/app_events/client"
	"github.com/rescp17/lanBench/pkg/transfer"
)

// Summarize totals a round's results per status and channel. Throughput is
// the channel's combined bytes over the round's wall time.
func Summarize(results []Result, elapsed time.Duration) clientevents.RoundSummary {
	var s clientevents.RoundSummary
	for _, r := range results {
		switch r.Session.Status {
		case transfer.StatusComplete:
			s.Complete++
		case transfer.StatusPartial:
			s.Partial++
		default:
			s.Failed++
		}
		if r.Session.Channel == transfer.ChannelBulk {
			s.BulkBytes += r.Session.BytesReceived
		} else {
			s.SegBytes += r.Session.BytesReceived
		}
	}
	s.BulkBitsPerSecond = transfer.Throughput(s.BulkBytes, elapsed)
	s.SegBitsPerSecond = transfer.Throughput(s.SegBytes, elapsed)
	return s
}
