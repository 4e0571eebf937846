package run

import (
	"time"

	"github.com/kilianp07/dischargectl/core/device"
)

// Event is published on the run event bus. Observers (metrics sinks, the
// MQTT publisher, the console view) consume events off the control path.
type Event any

// SampleEvent carries one telemetry sample. ReadLatency is the time the
// device took to answer the measurement queries.
type SampleEvent struct {
	RunID       string
	Entry       int
	Sample      Sample
	ReadLatency time.Duration
	Time        time.Time
}

// SetpointEvent is published when a schedule entry is applied to the load.
type SetpointEvent struct {
	RunID    string
	Entry    int
	Mode     device.Mode
	Setpoint float64
	Time     time.Time
}

// StateEvent is published when the run reaches a terminal state.
type StateEvent struct {
	RunID   string
	Status  Status
	Samples int
	Elapsed time.Duration
	Time    time.Time
}
