// Package serial opens the UART a target streams fault frames on.
package serial

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// DefaultBaud is the rate the firmware log UART runs at.
const DefaultBaud = 115200

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data buffered by the driver
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// ReadTimeout bounds a single Read; zero blocks. A read that times out
	// returns io.EOF with no data.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration of the firmware log UART.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks the configuration before a port is opened.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("serial: no device given")
	}
	if c.Baud <= 0 {
		return errors.Errorf("serial: invalid baud rate %d", c.Baud)
	}
	if c.ReadTimeout < 0 {
		return errors.Errorf("serial: negative read timeout %s", c.ReadTimeout)
	}
	return nil
}
