package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic prefixes every protocol message. Anything without it is noise.
const Magic uint32 = 0xabcddcba

// Kind is the one-byte message tag that follows the magic value.
type Kind uint8

const (
	KindAdvertise Kind = 0x2
	KindRequest   Kind = 0x3
	KindData      Kind = 0x4
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindAdvertise:
		return "advertise"
	case KindRequest:
		return "request"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint8(k))
	}
}

// Wire sizes, all big-endian with no padding.
const (
	HeaderSize         = 5  // magic + kind
	AdvertisementSize  = 9  // header + udp port + tcp port
	SegmentRequestSize = 13 // header + u64 size
	SegmentHeaderSize  = 21 // header + u64 total + u64 index

	DefaultDatagramSize = 1024
)

var (
	// ErrInvalidFrame means the bytes are not a protocol message: short buffer,
	// wrong magic or unknown kind. Receivers drop the frame and keep going.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrProtocolMismatch means a well-formed frame arrived in the wrong context.
	ErrProtocolMismatch = errors.New("protocol mismatch")
	// ErrMalformedSize means the decimal size of a bulk request could not be parsed.
	ErrMalformedSize = errors.New("malformed size")
)

// Message is implemented by every datagram message type.
type Message interface {
	Kind() Kind
	AppendTo(b []byte) []byte
}

// Advertisement announces the server's service ports.
type Advertisement struct {
	UDPPort uint16
	TCPPort uint16
}

func (Advertisement) Kind() Kind { return KindAdvertise }

func (a Advertisement) AppendTo(b []byte) []byte {
	b = appendHeader(b, KindAdvertise)
	b = binary.BigEndian.AppendUint16(b, a.UDPPort)
	return binary.BigEndian.AppendUint16(b, a.TCPPort)
}

// SegmentRequest asks for Size bytes over the segmented channel.
type SegmentRequest struct {
	Size uint64
}

func (SegmentRequest) Kind() Kind { return KindRequest }

func (r SegmentRequest) AppendTo(b []byte) []byte {
	b = appendHeader(b, KindRequest)
	return binary.BigEndian.AppendUint64(b, r.Size)
}

// Segment is one datagram of a segmented transfer. Payload aliases the
// decoded buffer.
type Segment struct {
	Total   uint64
	Index   uint64
	Payload []byte
}

func (Segment) Kind() Kind { return KindData }

func (s Segment) AppendTo(b []byte) []byte {
	b = AppendSegmentHeader(b, s.Total, s.Index)
	return append(b, s.Payload...)
}

// IsLast reports whether this is the final segment of its sequence.
func (s Segment) IsLast() bool {
	return s.Total > 0 && s.Index == s.Total-1
}

// AppendSegmentHeader appends the 21-byte segment header, so senders can
// put header and payload into one buffer without an intermediate Segment.
func AppendSegmentHeader(b []byte, total, index uint64) []byte {
	b = appendHeader(b, KindData)
	b = binary.BigEndian.AppendUint64(b, total)
	return binary.BigEndian.AppendUint64(b, index)
}

// Encode returns the wire form of m.
func Encode(m Message) []byte {
	return m.AppendTo(nil)
}

// Decode parses one datagram. It returns ErrInvalidFrame when the buffer is
// shorter than the fixed header of its kind, the magic does not match, or the
// kind is unknown.
func Decode(b []byte) (Message, error) {
	kind, err := decodeHeader(b)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindAdvertise:
		if len(b) < AdvertisementSize {
			return nil, fmt.Errorf("%w: advertisement is %d bytes", ErrInvalidFrame, len(b))
		}
		return Advertisement{
			UDPPort: binary.BigEndian.Uint16(b[5:7]),
			TCPPort: binary.BigEndian.Uint16(b[7:9]),
		}, nil
	case KindRequest:
		if len(b) < SegmentRequestSize {
			return nil, fmt.Errorf("%w: request is %d bytes", ErrInvalidFrame, len(b))
		}
		return SegmentRequest{Size: binary.BigEndian.Uint64(b[5:13])}, nil
	case KindData:
		if len(b) < SegmentHeaderSize {
			return nil, fmt.Errorf("%w: segment is %d bytes", ErrInvalidFrame, len(b))
		}
		return Segment{
			Total:   binary.BigEndian.Uint64(b[5:13]),
			Index:   binary.BigEndian.Uint64(b[13:21]),
			Payload: b[SegmentHeaderSize:],
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind 0x%x", ErrInvalidFrame, uint8(kind))
}

func appendHeader(b []byte, kind Kind) []byte {
	b = binary.BigEndian.AppendUint32(b, Magic)
	return append(b, byte(kind))
}

func decodeHeader(b []byte) (Kind, error) {
	if len(b) < HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidFrame, len(b))
	}
	if m := binary.BigEndian.Uint32(b[:4]); m != Magic {
		return 0, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidFrame, m)
	}
	kind := Kind(b[4])
	switch kind {
	case KindAdvertise, KindRequest, KindData:
		return kind, nil
	}
	return 0, fmt.Errorf("%w: unknown kind 0x%x", ErrInvalidFrame, uint8(kind))
}
