package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort          = 37020
	DefaultInterval      = time.Second
	DefaultBroadcastAddr = "255.255.255.255"

	DefaultServerType = "_lanbench._udp"
	DefaultDomain     = "local"
)

// ServiceInfo describes what a server announces.
type ServiceInfo struct {
	Name    string // hostname or instance name, mDNS only
	Type    string // service name, e.g., "_lanbench._udp"
	Domain  string // domain, e.g., "local"
	UDPPort uint16
	TCPPort uint16
}

// Endpoint is a discovered server. It is fixed for one discovery cycle.
type Endpoint struct {
	Addr    net.IP
	UDPPort uint16
	TCPPort uint16
}

// BulkAddr is the host:port of the server's bulk (TCP) service.
func (e Endpoint) BulkAddr() string {
	return net.JoinHostPort(e.Addr.String(), strconv.Itoa(int(e.TCPPort)))
}

// SegmentedAddr is the host:port of the server's segmented (UDP) service.
func (e Endpoint) SegmentedAddr() string {
	return net.JoinHostPort(e.Addr.String(), strconv.Itoa(int(e.UDPPort)))
}

func (e Endpoint) String() string {
	return e.Addr.String() + " udp/" + strconv.Itoa(int(e.UDPPort)) + " tcp/" + strconv.Itoa(int(e.TCPPort))
}

// Adapter is implemented by each discovery mechanism.
type Adapter interface {
	// Announce advertises service until ctx is done.
	Announce(ctx context.Context, service ServiceInfo) error
	// Discover blocks until the first valid advertisement arrives.
	Discover(ctx context.Context) (Endpoint, error)
}

// Config controls the broadcast discovery cycle
type Config struct {
	Port          int           `json:"port"`
	Interval      time.Duration `json:"interval"`
	BroadcastAddr string        `json:"broadcast_addr"`
}

// DefaultConfig returns the well-known discovery settings
func DefaultConfig() *Config {
	return &Config{
		Port:          DefaultPort,
		Interval:      DefaultInterval,
		BroadcastAddr: DefaultBroadcastAddr,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("discovery port must be between 1 and 65535")
	}
	if c.Interval <= 0 {
		return errors.New("broadcast interval must be positive")
	}
	if ip := net.ParseIP(c.BroadcastAddr); ip == nil || ip.To4() == nil {
		return errors.New("broadcast address must be an IPv4 address")
	}
	return nil
}
