package server

import (
	"errors"
	"net"
	"time"
)

// Config holds the server's listening and shutdown settings. Port 0 lets the
// kernel pick; the chosen ports are announced in every advertisement.
type Config struct {
	BindAddr     string        `json:"bind_addr"`
	TCPPort      int           `json:"tcp_port"`
	UDPPort      int           `json:"udp_port"`
	DrainTimeout time.Duration `json:"drain_timeout"` // 0 waits for every worker
	StatsAddr    string        `json:"stats_addr"`    // empty disables the stats endpoint
	Name         string        `json:"name"`
}

const (
	DefaultDrainTimeout = 30 * time.Second
)

func DefaultConfig() *Config {
	return &Config{
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return errors.New("tcp_port must be between 0 and 65535")
	}
	if c.UDPPort < 0 || c.UDPPort > 65535 {
		return errors.New("udp_port must be between 0 and 65535")
	}
	if c.BindAddr != "" && net.ParseIP(c.BindAddr) == nil {
		return errors.New("bind_addr must be an IP address")
	}
	if c.DrainTimeout < 0 {
		return errors.New("drain_timeout cannot be negative")
	}
	if c.StatsAddr != "" {
		if _, _, err := net.SplitHostPort(c.StatsAddr); err != nil {
			return errors.New("stats_addr must be host:port")
		}
	}
	return nil
}
