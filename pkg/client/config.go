package client

import (
	"errors"
	"time"
)

// Config describes what each measurement round asks of the server.
type Config struct {
	Size             uint64        `json:"size"`
	BulkWorkers      int           `json:"bulk_workers"`
	SegmentedWorkers int           `json:"segmented_workers"`
	Rounds           int           `json:"rounds"` // 0 repeats until stopped
	RoundDelay       time.Duration `json:"round_delay"`
	DiscoveryTimeout time.Duration `json:"discovery_timeout"` // 0 waits forever
}

const (
	DefaultSize       = 10 * 1024 * 1024
	DefaultRoundDelay = time.Second
)

func DefaultConfig() *Config {
	return &Config{
		Size:             DefaultSize,
		BulkWorkers:      1,
		SegmentedWorkers: 1,
		Rounds:           1,
		RoundDelay:       DefaultRoundDelay,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.BulkWorkers < 0 {
		return errors.New("bulk_workers cannot be negative")
	}
	if c.SegmentedWorkers < 0 {
		return errors.New("segmented_workers cannot be negative")
	}
	if c.BulkWorkers+c.SegmentedWorkers == 0 {
		return errors.New("at least one bulk or segmented worker is required")
	}
	if c.Rounds < 0 {
		return errors.New("rounds cannot be negative")
	}
	if c.RoundDelay < 0 {
		return errors.New("round_delay cannot be negative")
	}
	if c.DiscoveryTimeout < 0 {
		return errors.New("discovery_timeout cannot be negative")
	}
	return nil
}
