package transfer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/lanBench/pkg/protocol"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 200 * time.Millisecond
	return cfg
}

// startSegmentedServer reads requests on loopback and passes each decoded
// request and return address to handle.
func startSegmentedServer(t *testing.T, handle func(conn *net.UDPConn, to *net.UDPAddr, size uint64)) string {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			msg, err := protocol.Decode(buf[:n])
			if err != nil {
				continue
			}
			if req, ok := msg.(protocol.SegmentRequest); ok {
				go handle(conn, from, req.Size)
			}
		}
	}()
	return conn.LocalAddr().String()
}

func sendSegments(conn *net.UDPConn, to *net.UDPAddr, size uint64, capacity int, indices ...uint64) {
	total := SegmentCount(size, capacity)
	for _, idx := range indices {
		lo, hi := SegmentBounds(idx, size, capacity)
		b := protocol.Encode(protocol.Segment{Total: total, Index: idx, Payload: make([]byte, hi-lo)})
		_, _ = conn.WriteToUDP(b, to)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSegmentedTransfer_Loopback(t *testing.T) {
	cfg := testConfig()
	addr := startSegmentedServer(t, func(_ *net.UDPConn, to *net.UDPAddr, size uint64) {
		_, _ = ServeSegmented(to, size, cfg)
	})

	s := FetchSegmented(context.Background(), addr, 3000, cfg)
	require.Equal(t, StatusComplete, s.Status, "%v", s.Err)
	assert.Equal(t, uint64(3), s.SegmentsExpected)
	assert.Equal(t, uint64(3), s.SegmentsReceived)
	assert.Equal(t, uint64(3000), s.BytesReceived)

	m := Measure(s)
	assert.Equal(t, 100.0, m.SuccessRate)
	assert.True(t, m.HasSuccessRate)
}

func TestSegmentedTransfer_ZeroSize(t *testing.T) {
	cfg := testConfig()
	addr := startSegmentedServer(t, func(_ *net.UDPConn, to *net.UDPAddr, size uint64) {
		_, _ = ServeSegmented(to, size, cfg)
	})

	s := FetchSegmented(context.Background(), addr, 0, cfg)
	require.Equal(t, StatusComplete, s.Status, "%v", s.Err)
	assert.Equal(t, uint64(1), s.SegmentsExpected)
	assert.Equal(t, uint64(0), s.BytesReceived)
}

func TestSegmentedTransfer_LostSegment(t *testing.T) {
	cfg := testConfig()
	capacity := cfg.PayloadCapacity()
	addr := startSegmentedServer(t, func(conn *net.UDPConn, to *net.UDPAddr, size uint64) {
		// segment 1 never arrives
		sendSegments(conn, to, size, capacity, 0, 2)
	})

	s := FetchSegmented(context.Background(), addr, 3000, cfg)
	assert.Equal(t, StatusPartial, s.Status)
	assert.NoError(t, s.Err)
	assert.Equal(t, uint64(2), s.SegmentsReceived)
	assert.Equal(t, uint64(3), s.SegmentsExpected)
	assert.Equal(t, uint64(1003+994), s.BytesReceived)
	assert.InDelta(t, 66.67, Measure(s).SuccessRate, 0.01)
}

func TestSegmentedTransfer_IdleTimeoutEndsTransfer(t *testing.T) {
	cfg := testConfig()
	capacity := cfg.PayloadCapacity()
	addr := startSegmentedServer(t, func(conn *net.UDPConn, to *net.UDPAddr, size uint64) {
		// the last segment never arrives, so only the idle timeout can end it
		sendSegments(conn, to, size, capacity, 0, 1)
	})

	started := time.Now()
	s := FetchSegmented(context.Background(), addr, 3000, cfg)
	assert.GreaterOrEqual(t, time.Since(started), cfg.IdleTimeout)
	assert.Equal(t, StatusPartial, s.Status)
	assert.Equal(t, uint64(2), s.SegmentsReceived)
	assert.InDelta(t, 66.67, Measure(s).SuccessRate, 0.01)
	// end is stamped at the last segment, not at the timeout
	assert.Less(t, s.End.Sub(s.Start), cfg.IdleTimeout)
}

func TestSegmentedTransfer_DiscardsWrongKind(t *testing.T) {
	cfg := testConfig()
	capacity := cfg.PayloadCapacity()
	addr := startSegmentedServer(t, func(conn *net.UDPConn, to *net.UDPAddr, size uint64) {
		_, _ = conn.WriteToUDP(protocol.Encode(protocol.Advertisement{UDPPort: 1, TCPPort: 2}), to)
		_, _ = conn.WriteToUDP([]byte("noise"), to)
		_, _ = conn.WriteToUDP(protocol.Encode(protocol.Segment{Total: 3, Index: 5, Payload: make([]byte, 5)}), to)
		sendSegments(conn, to, size, capacity, 0, 1, 2)
	})

	s := FetchSegmented(context.Background(), addr, 3000, cfg)
	require.Equal(t, StatusComplete, s.Status)
	assert.Equal(t, uint64(3), s.SegmentsReceived)
	assert.Equal(t, uint64(3000), s.BytesReceived)
}

func TestSegmentedTransfer_NoDataReceived(t *testing.T) {
	cfg := testConfig()
	addr := startSegmentedServer(t, func(*net.UDPConn, *net.UDPAddr, uint64) {})

	s := FetchSegmented(context.Background(), addr, 3000, cfg)
	assert.Equal(t, StatusFailed, s.Status)
	assert.ErrorIs(t, s.Err, ErrNoDataReceived)
	assert.False(t, Measure(s).HasSuccessRate)
}

func TestSegmentedTransfer_Cancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 5 * time.Second
	addr := startSegmentedServer(t, func(*net.UDPConn, *net.UDPAddr, uint64) {})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s := FetchSegmented(ctx, addr, 3000, cfg)
	assert.Equal(t, StatusFailed, s.Status)
	assert.ErrorIs(t, s.Err, context.DeadlineExceeded)
}

func TestServeSegmented_RequestTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequestSize = 10
	_, err := ServeSegmented(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}, 11, cfg)
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestServeSegmented_SegmentsOnTheWire(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBatchSize = 2

	sink, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sink.Close()

	sent, err := ServeSegmented(sink.LocalAddr().(*net.UDPAddr), 3000, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), sent)

	buf := make([]byte, 2048)
	var lengths []int
	var indices []uint64
	require.NoError(t, sink.SetReadDeadline(time.Now().Add(time.Second)))
	for len(lengths) < 3 {
		n, _, err := sink.ReadFromUDP(buf)
		require.NoError(t, err)
		msg, err := protocol.Decode(buf[:n])
		require.NoError(t, err)
		seg := msg.(protocol.Segment)
		assert.Equal(t, uint64(3), seg.Total)
		indices = append(indices, seg.Index)
		lengths = append(lengths, len(seg.Payload))
	}
	assert.Equal(t, []uint64{0, 1, 2}, indices)
	assert.Equal(t, []int{1003, 1003, 994}, lengths)
}
