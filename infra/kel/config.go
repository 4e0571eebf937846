package kel

import "fmt"

// Config defines the serial connection parameters for the KEL103 load.
type Config struct {
	// Port is the serial device, e.g. /dev/ttyACM0 or COM3.
	Port string `json:"port"`
	// Baud is the line rate. The KEL103 ships at 115200.
	Baud int `json:"baud"`
	// ReadTimeoutMS bounds each query; a device that stops answering
	// within it is treated as failed.
	ReadTimeoutMS int `json:"read_timeout_ms"`
}

// SetDefaults applies the factory settings of the instrument.
func (c *Config) SetDefaults() {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = 1000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	return nil
}
