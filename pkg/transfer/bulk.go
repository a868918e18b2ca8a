package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rescp17/lanBench/pkg/protocol"
)

// tuneTCP sizes the kernel buffers and disables Nagle on a bulk connection.
func tuneTCP(conn net.Conn, bufSize int) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.SetNoDelay(true)
	if bufSize > 0 {
		_ = tcp.SetReadBuffer(bufSize)
		_ = tcp.SetWriteBuffer(bufSize)
	}
}

// FetchBulk requests size bytes from the bulk service at addr and reads
// them to completion. The returned session is always terminal.
func FetchBulk(ctx context.Context, addr string, size uint64, cfg *Config) *Session {
	session := NewSession(ChannelBulk, size)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		session.Fail(fmt.Errorf("dial %s: %w", addr, err))
		return session
	}
	defer conn.Close()
	tuneTCP(conn, cfg.SocketBufferSize)

	// Cancellation closes the socket so a blocked read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	session.Begin()
	if err := protocol.WriteBulkRequest(conn, size); err != nil {
		session.Fail(bulkError(ctx, "sending request", err))
		return session
	}
	if err := protocol.ReadHeader(conn, protocol.KindData); err != nil {
		session.Fail(bulkError(ctx, "reading response header", err))
		return session
	}

	buf := make([]byte, cfg.ReadBufferSize)
	for session.BytesReceived < size {
		want := uint64(len(buf))
		if remaining := size - session.BytesReceived; remaining < want {
			want = remaining
		}
		n, err := conn.Read(buf[:want])
		session.BytesReceived += uint64(n)
		if err != nil {
			if session.BytesReceived == size {
				break
			}
			session.Fail(bulkError(ctx, "reading payload", err))
			return session
		}
	}

	session.Finish(StatusComplete, nil)
	return session
}

func bulkError(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", step, ctxErr)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", step, ErrConnectionClosed)
	}
	return fmt.Errorf("%s: %w", step, err)
}

// ServeBulk handles one accepted bulk connection: it reads the request, then
// writes the data header followed by exactly the requested number of bytes.
// It returns the number of payload bytes written. The caller owns conn.
func ServeBulk(conn net.Conn, cfg *Config) (uint64, error) {
	tuneTCP(conn, cfg.SocketBufferSize)

	size, err := protocol.ReadBulkRequest(conn)
	if err != nil {
		return 0, err
	}
	if cfg.MaxRequestSize > 0 && size > cfg.MaxRequestSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrRequestTooLarge, size, cfg.MaxRequestSize)
	}

	if err := protocol.WriteDataHeader(conn); err != nil {
		return 0, fmt.Errorf("writing data header: %w", err)
	}
	n, err := io.Copy(conn, newPatternReader(size, cfg.ReadBufferSize))
	if err != nil {
		return uint64(n), fmt.Errorf("writing payload: %w", err)
	}
	return uint64(n), nil
}
