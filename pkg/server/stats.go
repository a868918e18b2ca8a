package server

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time copy of the server counters.
type Stats struct {
	BulkServed      uint64        `json:"bulk_served"`
	BulkFailed      uint64        `json:"bulk_failed"`
	SegmentedServed uint64        `json:"segmented_served"`
	SegmentedFailed uint64        `json:"segmented_failed"`
	BytesSent       uint64        `json:"bytes_sent"`
	FramesRejected  uint64        `json:"frames_rejected"`
	ActiveWorkers   int64         `json:"active_workers"`
	Uptime          time.Duration `json:"uptime"`
}

// counters are updated by workers and read by the stats endpoint. They are
// the only state workers share.
type counters struct {
	bulkServed      atomic.Uint64
	bulkFailed      atomic.Uint64
	segmentedServed atomic.Uint64
	segmentedFailed atomic.Uint64
	bytesSent       atomic.Uint64
	framesRejected  atomic.Uint64
	activeWorkers   atomic.Int64
}

func (c *counters) snapshot(started time.Time) Stats {
	var uptime time.Duration
	if !started.IsZero() {
		uptime = time.Since(started)
	}
	return Stats{
		BulkServed:      c.bulkServed.Load(),
		BulkFailed:      c.bulkFailed.Load(),
		SegmentedServed: c.segmentedServed.Load(),
		SegmentedFailed: c.segmentedFailed.Load(),
		BytesSent:       c.bytesSent.Load(),
		FramesRejected:  c.framesRejected.Load(),
		ActiveWorkers:   c.activeWorkers.Load(),
		Uptime:          uptime,
	}
}
