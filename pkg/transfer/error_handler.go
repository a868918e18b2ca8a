package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"syscall"

	"github.com/rescp17/lanBench/pkg/protocol"
)

var (
	// ErrConnectionClosed means the peer closed the stream before the requested size arrived.
	ErrConnectionClosed = errors.New("connection closed before transfer completed")
	// ErrNoDataReceived means a segmented transfer ended without a single valid segment.
	ErrNoDataReceived = errors.New("no data received")
	// ErrRequestTooLarge means a request exceeded the server's MaxRequestSize.
	ErrRequestTooLarge = errors.New("requested size exceeds server limit")
)

// ErrorCategory represents how an error affects the worker that saw it
type ErrorCategory int

const (
	// ErrorCategoryNone is returned for a nil error
	ErrorCategoryNone ErrorCategory = iota
	// ErrorCategoryDropped covers frames that are discarded while the receiver keeps listening
	ErrorCategoryDropped
	// ErrorCategoryAborted ends only the current session
	ErrorCategoryAborted
	// ErrorCategoryConnectionClosed ends the session with whatever already arrived
	ErrorCategoryConnectionClosed
	// ErrorCategoryEndOfStream is the segmented idle timeout, an expected terminator
	ErrorCategoryEndOfStream
	// ErrorCategoryFatal is limited to failing to bind a required socket
	ErrorCategoryFatal
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryNone:
		return "none"
	case ErrorCategoryDropped:
		return "dropped"
	case ErrorCategoryAborted:
		return "aborted"
	case ErrorCategoryConnectionClosed:
		return "connection_closed"
	case ErrorCategoryEndOfStream:
		return "end_of_stream"
	case ErrorCategoryFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	switch {
	case errors.Is(err, protocol.ErrInvalidFrame):
		return ErrorCategoryDropped
	case errors.Is(err, protocol.ErrProtocolMismatch),
		errors.Is(err, protocol.ErrMalformedSize),
		errors.Is(err, ErrRequestTooLarge),
		errors.Is(err, ErrNoDataReceived),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryAborted
	case errors.Is(err, ErrConnectionClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return ErrorCategoryConnectionClosed
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "listen" {
		return ErrorCategoryFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCategoryEndOfStream
	}

	return ErrorCategoryAborted
}

// StatusFor maps an error to the terminal status of a session that had
// already received the given number of bytes.
func StatusFor(err error, received uint64) Status {
	switch Classify(err) {
	case ErrorCategoryNone:
		return StatusComplete
	case ErrorCategoryConnectionClosed, ErrorCategoryEndOfStream:
		if received > 0 {
			return StatusPartial
		}
		return StatusFailed
	default:
		return StatusFailed
	}
}

// LogSession logs a finished session at a level matching its outcome
func LogSession(role string, s *Session) {
	logFields := []any{
		"role", role,
		"session", s.ShortID(),
		"channel", s.Channel.String(),
		"status", s.Status.String(),
		"requested", s.RequestedSize,
		"received", s.BytesReceived,
	}
	if s.Channel == ChannelSegmented {
		logFields = append(logFields, "segments", s.SegmentsReceived, "expected", s.SegmentsExpected)
	}

	switch s.Status {
	case StatusComplete:
		slog.Info("Transfer finished", logFields...)
	case StatusPartial:
		if s.Err != nil {
			logFields = append(logFields, "error", s.Err, "category", Classify(s.Err).String())
		}
		slog.Warn("Transfer incomplete", logFields...)
	default:
		logFields = append(logFields, "error", s.Err, "category", Classify(s.Err).String())
		slog.Warn("Transfer failed", logFields...)
	}
}
