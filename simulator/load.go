package simulator

import (
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/dischargectl/core/device"
)

// Config describes the simulated battery attached to the load.
type Config struct {
	CapacityAh   float64 `json:"capacity_ah"`
	FullVoltage  float64 `json:"full_voltage"`
	EmptyVoltage float64 `json:"empty_voltage"`
	InternalOhm  float64 `json:"internal_ohm"`
	InitialSoC   float64 `json:"initial_soc"`
	// TimeScale accelerates the simulated clock, e.g. 60 drains the
	// battery sixty times faster than wall time.
	TimeScale float64 `json:"time_scale"`
}

// SetDefaults applies a small bench cell.
func (c *Config) SetDefaults() {
	if c.CapacityAh == 0 {
		c.CapacityAh = 2.5
	}
	if c.FullVoltage == 0 {
		c.FullVoltage = 4.2
	}
	if c.EmptyVoltage == 0 {
		c.EmptyVoltage = 3.0
	}
	if c.InternalOhm == 0 {
		c.InternalOhm = 0.05
	}
	if c.InitialSoC == 0 {
		c.InitialSoC = 1
	}
	if c.TimeScale == 0 {
		c.TimeScale = 1
	}
}

// Load is a simulated electronic load discharging a simulated battery. It
// implements device.Device and is used by `run --simulate` and the tests.
type Load struct {
	mu       sync.Mutex
	battery  *Battery
	scale    float64
	mode     device.Mode
	setpoint float64
	enabled  bool
	closed   bool
	last     time.Time
}

// NewLoad creates a simulated load for the configured battery.
func NewLoad(cfg Config) *Load {
	cfg.SetDefaults()
	return &Load{
		battery: &Battery{
			CapacityAh:   cfg.CapacityAh,
			FullVoltage:  cfg.FullVoltage,
			EmptyVoltage: cfg.EmptyVoltage,
			InternalOhm:  cfg.InternalOhm,
			Soc:          cfg.InitialSoC,
		},
		scale: cfg.TimeScale,
		last:  time.Now(),
	}
}

// SetMode programs the regulation function and setpoint.
func (l *Load) SetMode(mode device.Mode, setpoint float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("simulated load closed")
	}
	l.advance()
	l.mode = mode
	l.setpoint = setpoint
	return nil
}

// Enable turns the load input on.
func (l *Load) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("simulated load closed")
	}
	l.advance()
	l.enabled = true
	return nil
}

// Disable turns the load input off.
func (l *Load) Disable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("simulated load closed")
	}
	l.advance()
	l.enabled = false
	return nil
}

// Enabled reports whether the load input is on.
func (l *Load) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SoC returns the remaining state of charge of the simulated battery.
func (l *Load) SoC() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.battery.Soc
}

// ReadTelemetry advances the simulation and measures the input terminals.
func (l *Load) ReadTelemetry() (device.Telemetry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return device.Telemetry{}, errors.New("simulated load closed")
	}
	l.advance()
	v := l.battery.OpenCircuitVoltage()
	i := l.current(v)
	if !l.enabled {
		i = 0
	}
	v = l.battery.Drain(i, 0)
	return device.Telemetry{Voltage: v, Current: i, Power: v * i}, nil
}

// Close disconnects the simulated device.
func (l *Load) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.enabled = false
	return nil
}

// advance drains the battery for the wall time elapsed since the last update,
// scaled by the configured time factor. Callers must hold l.mu.
func (l *Load) advance() {
	now := time.Now()
	dt := now.Sub(l.last)
	l.last = now
	if !l.enabled || dt <= 0 {
		return
	}
	v := l.battery.OpenCircuitVoltage()
	i := l.current(v)
	l.battery.Drain(i, time.Duration(float64(dt)*l.scale))
}

func (l *Load) current(voltage float64) float64 {
	switch l.mode {
	case device.ModeConstantPower:
		if voltage <= 0 {
			return 0
		}
		return l.setpoint / voltage
	default:
		return l.setpoint
	}
}
