package config

import "fmt"

// RunConfig defines the sampling cadence, safety cutoff and log destination.
type RunConfig struct {
	// SampleIntervalSeconds is the telemetry sampling period.
	SampleIntervalSeconds float64 `json:"sample_interval_seconds"`
	// MinVoltage disables the load when a sampled voltage falls at or below it.
	MinVoltage float64 `json:"min_voltage"`
	// LogPath is the output CSV file for telemetry samples.
	LogPath string `json:"log_path"`
}

// SetDefaults applies sane defaults.
func (c *RunConfig) SetDefaults() {
	if c.SampleIntervalSeconds == 0 {
		c.SampleIntervalSeconds = 1
	}
	if c.LogPath == "" {
		c.LogPath = "voltage_log.csv"
	}
}

// Validate checks mandatory fields.
func (c RunConfig) Validate() error {
	if c.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("sample_interval_seconds must be positive")
	}
	if c.MinVoltage < 0 {
		return fmt.Errorf("min_voltage must not be negative")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log_path is required")
	}
	return nil
}
