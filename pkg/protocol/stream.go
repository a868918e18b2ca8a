package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// The bulk channel carries its request size as ASCII decimal terminated by
// '\n'. A uint64 never needs more than 20 digits.
const maxSizeDigits = 20

// WriteBulkRequest sends magic, KindRequest and the decimal size line.
func WriteBulkRequest(w io.Writer, size uint64) error {
	b := appendHeader(make([]byte, 0, HeaderSize+maxSizeDigits+1), KindRequest)
	b = strconv.AppendUint(b, size, 10)
	b = append(b, '\n')
	_, err := w.Write(b)
	return err
}

// ReadBulkRequest reads a bulk request header and its size line. The size is
// read one byte at a time so nothing past the terminator is consumed.
func ReadBulkRequest(r io.Reader) (uint64, error) {
	if err := ReadHeader(r, KindRequest); err != nil {
		return 0, err
	}

	digits := make([]byte, 0, maxSizeDigits)
	var one [1]byte
	for {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return 0, fmt.Errorf("reading request size: %w", err)
		}
		c := one[0]
		if c == '\n' {
			break
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: unexpected byte 0x%02x", ErrMalformedSize, c)
		}
		if len(digits) == maxSizeDigits {
			return 0, fmt.Errorf("%w: more than %d digits", ErrMalformedSize, maxSizeDigits)
		}
		digits = append(digits, c)
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("%w: empty size", ErrMalformedSize)
	}

	size, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedSize, err)
	}
	return size, nil
}

// WriteDataHeader writes the 5-byte bulk response header.
func WriteDataHeader(w io.Writer) error {
	_, err := w.Write(DataHeader())
	return err
}

// DataHeader returns the bulk response header bytes.
func DataHeader() []byte {
	return appendHeader(make([]byte, 0, HeaderSize), KindData)
}

// ReadHeader reads magic and kind from a stream and checks the kind is want.
// A bad magic or unknown kind yields ErrInvalidFrame, a known but unexpected
// kind yields ErrProtocolMismatch. Short reads return the io error.
func ReadHeader(r io.Reader, want Kind) error {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if m := binary.BigEndian.Uint32(hdr[:4]); m != Magic {
		return fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidFrame, m)
	}
	kind := Kind(hdr[4])
	switch kind {
	case KindAdvertise, KindRequest, KindData:
	default:
		return fmt.Errorf("%w: unknown kind 0x%x", ErrInvalidFrame, uint8(kind))
	}
	if kind != want {
		return fmt.Errorf("%w: got %s, want %s", ErrProtocolMismatch, kind, want)
	}
	return nil
}
