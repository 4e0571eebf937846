package run

import (
	"fmt"
	"time"
)

// Sample flags written to the log sink.
const (
	// FlagCutoff marks the sample that triggered the low-voltage cutoff.
	FlagCutoff = "cutoff"
	// FlagError marks the last sample of a run aborted by a device fault.
	FlagError = "error"
)

// Sample is one telemetry measurement taken during a run. Samples are
// append-only: once written to the log sink they are never mutated.
type Sample struct {
	Elapsed time.Duration
	Voltage float64
	Current float64
	Power   float64
	Flag    string
}

// SafetyLimit holds the cutoff threshold checked against every sample.
type SafetyLimit struct {
	// MinVoltage disables the load when a sampled voltage falls at or
	// below it. Must not be negative.
	MinVoltage float64
}

// LogSink receives samples in the order they were taken.
type LogSink interface {
	WriteSample(Sample) error
	Close() error
}

// Status is the terminal state of a run.
type Status int

const (
	// StatusCompleted means every schedule entry executed in full.
	StatusCompleted Status = iota
	// StatusCutoff means the low-voltage cutoff fired and the load was disabled.
	StatusCutoff
	// StatusFailed means a device or sink error stopped the run.
	StatusFailed
	// StatusAborted means the operator interrupted the run.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCutoff:
		return "stopped(cutoff)"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports how a run ended and how many samples were written.
type Result struct {
	Status  Status
	Samples int
	Err     error
}

// runState is the transient state owned by the runner for a single run.
type runState struct {
	entry   int
	samples int
}
