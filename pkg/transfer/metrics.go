package transfer

import "time"

// Metrics summarises a finished session.
type Metrics struct {
	Elapsed time.Duration `json:"elapsed"`
	Bytes   uint64        `json:"bytes"`
	// BitsPerSecond is zero when Elapsed is zero.
	BitsPerSecond float64 `json:"bits_per_second"`

	// SuccessRate is only meaningful when HasSuccessRate is set (segmented sessions
	// that received at least one segment).
	SuccessRate    float64 `json:"success_rate"`
	HasSuccessRate bool    `json:"has_success_rate"`
}

// Measure computes the metrics of s from its raw counters.
func Measure(s *Session) Metrics {
	elapsed := s.End.Sub(s.Start)
	if elapsed < 0 {
		elapsed = 0
	}
	m := Metrics{
		Elapsed:       elapsed,
		Bytes:         s.BytesReceived,
		BitsPerSecond: Throughput(s.BytesReceived, elapsed),
	}
	if s.Channel == ChannelSegmented {
		m.SuccessRate, m.HasSuccessRate = SuccessRate(s.SegmentsReceived, s.SegmentsExpected)
	}
	return m
}

// Throughput returns bytes*8/elapsed in bits per second, or zero when no time elapsed.
func Throughput(bytes uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) * 8 / elapsed.Seconds()
}

// SuccessRate returns received/expected as a percentage in [0, 100]. The
// second result is false when expected is unknown.
func SuccessRate(received, expected uint64) (float64, bool) {
	if expected == 0 {
		return 0, false
	}
	if received >= expected {
		return 100, true
	}
	return float64(received) / float64(expected) * 100, true
}
