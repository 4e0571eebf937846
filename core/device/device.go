package device

import "fmt"

// Mode selects the regulation function of the electronic load.
type Mode int

const (
	// ModeConstantCurrent sinks a fixed current in amps.
	ModeConstantCurrent Mode = iota
	// ModeConstantPower sinks a fixed power in watts.
	ModeConstantPower
)

// String returns the short mode mnemonic used in schedule files and logs.
func (m Mode) String() string {
	switch m {
	case ModeConstantCurrent:
		return "CC"
	case ModeConstantPower:
		return "CP"
	default:
		return "unknown"
	}
}

// ParseMode converts a schedule-file mnemonic into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "CC", "cc":
		return ModeConstantCurrent, nil
	case "CP", "cp":
		return ModeConstantPower, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// Telemetry is one measurement of the load's input terminals.
type Telemetry struct {
	Voltage float64 // volts
	Current float64 // amps
	Power   float64 // watts
}

// Device abstracts the electronic load so the scheduling and safety logic can
// run against a simulated implementation as well as real hardware.
type Device interface {
	// SetMode programs the regulation function and its setpoint
	// (amps for CC, watts for CP).
	SetMode(mode Mode, setpoint float64) error
	// Enable turns the load input on.
	Enable() error
	// Disable turns the load input off.
	Disable() error
	// ReadTelemetry measures voltage, current and power at the input.
	ReadTelemetry() (Telemetry, error)
	// Close releases the underlying connection.
	Close() error
}
