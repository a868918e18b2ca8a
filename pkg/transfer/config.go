package transfer

import (
	"errors"
	"time"

	"github.com/rescp17/lanBench/pkg/protocol"
)

// Config holds the tunables shared by both ends of the bulk and segmented channels
type Config struct {
	// DatagramSize is the outer budget of one segment datagram, header included.
	DatagramSize int `json:"datagram_size"`

	// IdleTimeout ends a segmented receive when no valid segment arrived for this long.
	IdleTimeout time.Duration `json:"idle_timeout"`

	// Socket settings
	SocketBufferSize int `json:"socket_buffer_size"` // SO_RCVBUF / SO_SNDBUF request
	ReadBufferSize   int `json:"read_buffer_size"`   // user-space receive buffer
	SendBatchSize    int `json:"send_batch_size"`    // segments handed to the kernel per batch

	// MaxRequestSize bounds what a server agrees to generate. Zero disables the check.
	MaxRequestSize uint64 `json:"max_request_size"`
}

const (
	DefaultIdleTimeout      = time.Second
	DefaultSocketBufferSize = 4 * 1024 * 1024
	DefaultReadBufferSize   = 64 * 1024
	DefaultSendBatchSize    = 64
	DefaultMaxRequestSize   = 16 * 1024 * 1024 * 1024

	// maxDatagramSize is the largest IPv4 UDP payload.
	maxDatagramSize = 65507
)

// DefaultConfig returns a configuration with the protocol's standard values
func DefaultConfig() *Config {
	return &Config{
		DatagramSize:     protocol.DefaultDatagramSize,
		IdleTimeout:      DefaultIdleTimeout,
		SocketBufferSize: DefaultSocketBufferSize,
		ReadBufferSize:   DefaultReadBufferSize,
		SendBatchSize:    DefaultSendBatchSize,
		MaxRequestSize:   DefaultMaxRequestSize,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.DatagramSize <= protocol.SegmentHeaderSize {
		return errors.New("datagram_size must be larger than the segment header")
	}
	if c.DatagramSize > maxDatagramSize {
		return errors.New("datagram_size cannot exceed 65507")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle_timeout must be positive")
	}
	if c.SocketBufferSize < 0 {
		return errors.New("socket_buffer_size cannot be negative")
	}
	if c.ReadBufferSize < c.DatagramSize {
		return errors.New("read_buffer_size cannot be smaller than datagram_size")
	}
	if c.SendBatchSize <= 0 {
		return errors.New("send_batch_size must be positive")
	}
	return nil
}

// PayloadCapacity is the number of payload bytes one segment can carry.
func (c *Config) PayloadCapacity() int {
	return c.DatagramSize - protocol.SegmentHeaderSize
}
