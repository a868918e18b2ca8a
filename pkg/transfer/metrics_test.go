package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThroughput(t *testing.T) {
	tests := []struct {
		name     string
		bytes    uint64
		elapsed  time.Duration
		expected float64
	}{
		{"zero elapsed reports zero", 1000, 0, 0},
		{"negative elapsed reports zero", 1000, -time.Second, 0},
		{"zero bytes", 0, time.Second, 0},
		{"one megabyte in one second", 1 << 20, time.Second, 8 * (1 << 20)},
		{"half second", 1000, 500 * time.Millisecond, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Throughput(tt.bytes, tt.elapsed), 1e-9)
		})
	}
}

func TestSuccessRate(t *testing.T) {
	rate, known := SuccessRate(0, 0)
	assert.False(t, known)
	assert.Equal(t, 0.0, rate)

	rate, known = SuccessRate(3, 3)
	assert.True(t, known)
	assert.Equal(t, 100.0, rate)

	rate, _ = SuccessRate(0, 7)
	assert.Equal(t, 0.0, rate)

	rate, _ = SuccessRate(5, 3)
	assert.Equal(t, 100.0, rate, "rate is capped at 100")

	for received := uint64(0); received <= 50; received++ {
		rate, _ := SuccessRate(received, 50)
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 100.0)
	}
}

func TestMeasure(t *testing.T) {
	start := time.Now()

	bulk := &Session{Channel: ChannelBulk, BytesReceived: 1000, Start: start, End: start.Add(time.Second)}
	m := Measure(bulk)
	assert.Equal(t, time.Second, m.Elapsed)
	assert.InDelta(t, 8000, m.BitsPerSecond, 1e-9)
	assert.False(t, m.HasSuccessRate)

	seg := &Session{
		Channel:          ChannelSegmented,
		BytesReceived:    1997,
		SegmentsReceived: 2,
		SegmentsExpected: 3,
		Start:            start,
		End:              start.Add(2 * time.Second),
	}
	m = Measure(seg)
	assert.True(t, m.HasSuccessRate)
	assert.InDelta(t, 66.67, m.SuccessRate, 0.01)
	assert.InDelta(t, 1997*8/2.0, m.BitsPerSecond, 1e-9)

	empty := &Session{Channel: ChannelBulk, Start: start, End: start}
	m = Measure(empty)
	assert.Equal(t, time.Duration(0), m.Elapsed)
	assert.Equal(t, 0.0, m.BitsPerSecond)
}
