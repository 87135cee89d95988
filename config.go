package recorder

import (
	"fmt"
	"time"
)

const (
	// DefaultPollInterval is the pacing of the ingestion loop: 50 Hz,
	// matching the device's expected emission granularity.
	DefaultPollInterval = 20 * time.Millisecond

	// DefaultFailureDuration is how long the line may stay silent before
	// the connection is declared dead.
	DefaultFailureDuration = 3 * time.Second

	// DefaultReadBufferSize bounds a single read from the port. At the
	// fastest supported baud rate the device emits under 2KB per poll
	// interval, so 4KB never truncates a poll.
	DefaultReadBufferSize = 4096

	// DefaultCapacity is the default number of retained samples per
	// channel.
	DefaultCapacity = 1000

	// MinCapacity and MaxCapacity bound the samples-per-channel setting.
	MinCapacity = 10
	MaxCapacity = 100000
)

// validBaudRates lists the rates the device side is known to support.
var validBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 256000, 460800, 512000, 921600}

// Config holds the tunables of a Service. The zero value is usable; every
// field defaults via withDefaults.
type Config struct {
	// PollInterval paces the ingestion loop and bounds how long a single
	// port read may block.
	PollInterval time.Duration

	// FailureDuration is the stall watchdog threshold: zero bytes for
	// longer than this tears the connection down.
	FailureDuration time.Duration

	// ReadBufferSize is the size of the buffer handed to each port read.
	ReadBufferSize int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.FailureDuration <= 0 {
		c.FailureDuration = DefaultFailureDuration
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	return c
}

// validateOpen checks the per-connection parameters passed to Open.
func validateOpen(port string, baudRate, capacity int) error {
	if port == "" {
		return fmt.Errorf("port name cannot be empty")
	}
	if !isValidBaudRate(baudRate) {
		return fmt.Errorf("invalid baud rate %d, must be one of: %v", baudRate, validBaudRates)
	}
	if capacity < MinCapacity || capacity > MaxCapacity {
		return fmt.Errorf("samples per channel must be %d-%d, got: %d", MinCapacity, MaxCapacity, capacity)
	}
	return nil
}

func isValidBaudRate(rate int) bool {
	for _, v := range validBaudRates {
		if rate == v {
			return true
		}
	}
	return false
}
