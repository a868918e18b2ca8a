package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies which transport a session uses
type Channel int

const (
	ChannelBulk Channel = iota
	ChannelSegmented
)

func (c Channel) String() string {
	switch c {
	case ChannelBulk:
		return "bulk"
	case ChannelSegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// MarshalText encodes the channel by name.
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Status represents the lifecycle state of a transfer session
type Status int

const (
	// StatusPending indicates the session was created but no request was sent yet
	StatusPending Status = iota
	// StatusActive indicates the request was sent and data is flowing
	StatusActive
	// StatusComplete indicates every expected byte or segment arrived
	StatusComplete
	// StatusPartial indicates the transfer ended with some data missing
	StatusPartial
	// StatusFailed indicates the transfer produced no usable data
	StatusFailed
)

// String returns a human-readable string representation of the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if the status is final
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusPartial || s == StatusFailed
}

// Session is the bookkeeping of one transfer. It is owned by the single
// worker driving it and is never shared, so it carries no lock.
type Session struct {
	ID            string  `json:"id"`
	Channel       Channel `json:"channel"`
	RequestedSize uint64  `json:"requested_size"`

	BytesReceived    uint64 `json:"bytes_received"`
	SegmentsReceived uint64 `json:"segments_received,omitempty"`
	// SegmentsExpected is zero until the first segment fixes the total.
	SegmentsExpected uint64 `json:"segments_expected,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// NewSession creates a pending session for size bytes over ch.
func NewSession(ch Channel, size uint64) *Session {
	return &Session{
		ID:            uuid.New().String(),
		Channel:       ch,
		RequestedSize: size,
		Status:        StatusPending,
	}
}

// Begin stamps the start time and marks the session active.
func (s *Session) Begin() {
	s.Start = time.Now()
	s.Status = StatusActive
}

// Finish moves the session into a terminal status. Only the first call counts.
func (s *Session) Finish(status Status, err error) {
	if s.Status.IsTerminal() {
		return
	}
	if s.End.IsZero() {
		s.End = time.Now()
	}
	if s.Start.IsZero() {
		s.Start = s.End
	}
	s.Status = status
	s.Err = err
}

// Fail finishes the session with the status err classifies to.
func (s *Session) Fail(err error) {
	s.Finish(StatusFor(err, s.BytesReceived), err)
}

// ShortID is the first block of the session ID, for log lines and tables.
func (s *Session) ShortID() string {
	if len(s.ID) < 8 {
		return s.ID
	}
	return s.ID[:8]
}
