package simulator

import (
	"sync"
	"time"
)

// Battery models a simple cell with a linear OCV curve and an internal
// resistance.
type Battery struct {
	CapacityAh   float64 // total capacity
	FullVoltage  float64 // open-circuit voltage at SoC 1
	EmptyVoltage float64 // open-circuit voltage at SoC 0
	InternalOhm  float64 // series resistance
	Soc          float64 // state of charge [0,1]
	mu           sync.Mutex
}

// Drain removes the charge drawn at the given current over dt and returns the
// resulting terminal voltage under that current. A fully drained battery
// reads zero volts.
func (b *Battery) Drain(currentA float64, dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	hours := dt.Hours()
	if currentA > 0 && hours > 0 {
		b.Soc -= currentA * hours / b.CapacityAh
	}
	if b.Soc < 0 {
		b.Soc = 0
	}
	if b.Soc > 1 {
		b.Soc = 1
	}
	return b.terminalVoltage(currentA)
}

// OpenCircuitVoltage returns the voltage with no load applied.
func (b *Battery) OpenCircuitVoltage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminalVoltage(0)
}

func (b *Battery) terminalVoltage(currentA float64) float64 {
	if b.Soc <= 0 {
		return 0
	}
	ocv := b.EmptyVoltage + b.Soc*(b.FullVoltage-b.EmptyVoltage)
	v := ocv - currentA*b.InternalOhm
	if v < 0 {
		v = 0
	}
	return v
}
