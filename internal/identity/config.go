package identity

import (
	"fmt"
	"time"
)

// Config tunes probabilistic identity linking
type Config struct {
	// Window is the maximum distance between two events for a probabilistic link
	Window time.Duration
	// MinConfidence is the lowest link score that merges two clusters
	MinConfidence float64
	IPWeight      float64
	DeviceWeight  float64
	TimeWeight    float64
	// TieTolerance is how close two candidate scores must be to count as a tie
	TieTolerance float64
}

// DefaultConfig returns a 30 minute window, 0.4 minimum and 0.5/0.3/0.2 weights
func DefaultConfig() Config {
	return Config{
		Window:        30 * time.Minute,
		MinConfidence: 0.4,
		IPWeight:      0.5,
		DeviceWeight:  0.3,
		TimeWeight:    0.2,
		TieTolerance:  0.05,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("identity window must be positive, got %s", c.Window)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("identity min confidence must be within [0,1], got %v", c.MinConfidence)
	}
	if c.IPWeight < 0 || c.DeviceWeight < 0 || c.TimeWeight < 0 {
		return fmt.Errorf("identity weights must not be negative")
	}
	if total := c.IPWeight + c.DeviceWeight + c.TimeWeight; total > 1+1e-9 {
		return fmt.Errorf("identity weights must sum to at most 1, got %v", total)
	}
	if c.TieTolerance < 0 {
		return fmt.Errorf("identity tie tolerance must not be negative")
	}
	return nil
}
