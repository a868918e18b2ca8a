package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/rescp17/lanBench/pkg/protocol"
)

// FetchSegmented sends one segmented request to addr from an ephemeral port
// and collects segments until the last index arrives or no valid segment
// has been seen for cfg.IdleTimeout. The returned session is always terminal.
//
// A session whose last index arrives while earlier indices are missing ends
// partial, not complete; complete means every index was received. Segments
// whose total differs from SegmentCount(size, cfg.PayloadCapacity()) are
// discarded, so both ends must use the same datagram size.
func FetchSegmented(ctx context.Context, addr string, size uint64, cfg *Config) *Session {
	session := NewSession(ChannelSegmented, size)

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		session.Fail(fmt.Errorf("resolve %s: %w", addr, err))
		return session
	}
	conn, err := net.ListenUDP(udpNetwork(raddr.IP), nil)
	if err != nil {
		session.Fail(fmt.Errorf("open datagram socket: %w", err))
		return session
	}
	defer conn.Close()
	if cfg.SocketBufferSize > 0 {
		_ = conn.SetReadBuffer(cfg.SocketBufferSize)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	session.Begin()
	if _, err := conn.WriteToUDP(protocol.Encode(protocol.SegmentRequest{Size: size}), raddr); err != nil {
		session.Fail(fmt.Errorf("sending request: %w", err))
		return session
	}

	tracker := newSegmentTracker(size, cfg.PayloadCapacity())
	buf := make([]byte, cfg.ReadBufferSize)
	lastValid := session.Start
	for {
		if err := conn.SetReadDeadline(lastValid.Add(cfg.IdleTimeout)); err != nil {
			session.Fail(fmt.Errorf("setting idle deadline: %w", err))
			return session
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				session.Fail(fmt.Errorf("receiving segments: %w", ctxErr))
				return session
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			session.Fail(fmt.Errorf("receiving segments: %w", err))
			return session
		}

		seg, err := decodeSegment(buf[:n])
		if err != nil {
			slog.Debug("Discarding datagram", "session", session.ShortID(), "error", err)
			continue
		}
		accepted, err := tracker.accept(seg)
		if err != nil {
			slog.Debug("Discarding segment", "session", session.ShortID(), "error", err)
			continue
		}
		lastValid = time.Now()
		if accepted {
			session.End = lastValid
			session.SegmentsExpected = tracker.total
			session.SegmentsReceived = tracker.received
			session.BytesReceived = tracker.bytes
		}
		if seg.IsLast() {
			break
		}
	}

	switch {
	case tracker.received == 0:
		session.Finish(StatusFailed, ErrNoDataReceived)
	case tracker.complete():
		session.Finish(StatusComplete, nil)
	default:
		session.Finish(StatusPartial, nil)
	}
	return session
}

// decodeSegment decodes b and insists on a data segment.
func decodeSegment(b []byte) (protocol.Segment, error) {
	msg, err := protocol.Decode(b)
	if err != nil {
		return protocol.Segment{}, err
	}
	seg, ok := msg.(protocol.Segment)
	if !ok {
		return protocol.Segment{}, fmt.Errorf("%w: got %s, want %s", protocol.ErrProtocolMismatch, msg.Kind(), protocol.KindData)
	}
	return seg, nil
}

// ServeSegmented sends size bytes to the client at to as
// SegmentCount(size, capacity) datagrams from a fresh socket owned by this
// call. Nothing is acknowledged or retransmitted. It returns the number of
// payload bytes handed to the kernel.
func ServeSegmented(to *net.UDPAddr, size uint64, cfg *Config) (uint64, error) {
	if cfg.MaxRequestSize > 0 && size > cfg.MaxRequestSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrRequestTooLarge, size, cfg.MaxRequestSize)
	}

	conn, err := net.ListenUDP(udpNetwork(to.IP), nil)
	if err != nil {
		return 0, fmt.Errorf("open datagram socket: %w", err)
	}
	defer conn.Close()
	if cfg.SocketBufferSize > 0 {
		_ = conn.SetWriteBuffer(cfg.SocketBufferSize)
	}

	capacity := cfg.PayloadCapacity()
	total := SegmentCount(size, capacity)
	// One block of content is generated per transfer; every segment slices
	// its range of the stream out of it.
	content := patternBlock(capacity + len(patternAlphabet))
	alphabet := uint64(len(patternAlphabet))

	w := newBatchWriter(conn, to, cfg.SendBatchSize, cfg.DatagramSize)
	var sent uint64
	for index := uint64(0); index < total; {
		w.reset()
		for ; index < total && !w.full(); index++ {
			lo, hi := SegmentBounds(index, size, capacity)
			start := lo % alphabet
			w.add(total, index, content[start:start+(hi-lo)])
		}
		k, err := w.flush()
		sent += w.payloadBytes(k)
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func udpNetwork(ip net.IP) string {
	if ip == nil || ip.To4() != nil {
		return "udp4"
	}
	return "udp6"
}

const (
	sendRetries    = 5
	sendRetryPause = time.Millisecond
)

// batchWriter hands segments to the kernel several at a time. For IPv4 it
// uses ipv4.PacketConn.WriteBatch, which maps to sendmmsg where available.
type batchWriter struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	to   *net.UDPAddr
	msgs []ipv4.Message
	bufs [][]byte
	lens []int
	n    int
}

func newBatchWriter(conn *net.UDPConn, to *net.UDPAddr, batch, datagramSize int) *batchWriter {
	w := &batchWriter{
		conn: conn,
		to:   to,
		msgs: make([]ipv4.Message, batch),
		bufs: make([][]byte, batch),
		lens: make([]int, batch),
	}
	if to.IP.To4() != nil {
		w.pc = ipv4.NewPacketConn(conn)
	}
	for i := range w.bufs {
		w.bufs[i] = make([]byte, 0, datagramSize)
	}
	return w
}

func (w *batchWriter) reset()     { w.n = 0 }
func (w *batchWriter) full() bool { return w.n == len(w.msgs) }

func (w *batchWriter) add(total, index uint64, payload []byte) {
	b := protocol.AppendSegmentHeader(w.bufs[w.n][:0], total, index)
	b = append(b, payload...)
	w.bufs[w.n] = b
	w.lens[w.n] = len(payload)
	w.msgs[w.n] = ipv4.Message{Buffers: [][]byte{b}, Addr: w.to}
	w.n++
}

// flush sends the pending batch and returns how many datagrams went out.
// A full local send buffer is retried a few times, after which the rest of
// the batch is dropped; any other error is returned.
func (w *batchWriter) flush() (int, error) {
	off := 0
	for attempt := 0; off < w.n; {
		k, err := w.write(off)
		off += k
		if err == nil && k > 0 {
			continue
		}
		if err == nil {
			err = syscall.EAGAIN
		}
		if !errors.Is(err, syscall.ENOBUFS) && !errors.Is(err, syscall.EAGAIN) {
			return off, fmt.Errorf("sending segments: %w", err)
		}
		attempt++
		if attempt > sendRetries {
			slog.Debug("Send buffer saturated, dropping segments", "dropped", w.n-off)
			return off, nil
		}
		time.Sleep(time.Duration(attempt) * sendRetryPause)
	}
	return off, nil
}

// payloadBytes sums the payload of the first k queued segments.
func (w *batchWriter) payloadBytes(k int) uint64 {
	var n uint64
	for _, l := range w.lens[:k] {
		n += uint64(l)
	}
	return n
}

func (w *batchWriter) write(off int) (int, error) {
	if w.pc != nil {
		return w.pc.WriteBatch(w.msgs[off:w.n], 0)
	}
	if _, err := w.conn.WriteToUDP(w.bufs[off], w.to); err != nil {
		return 0, err
	}
	return 1, nil
}
