package metrics

import (
	"time"

	"github.com/kilianp07/dischargectl/core/run"
)

// SampleRecord is a telemetry sample enriched with run context for
// observability sinks.
type SampleRecord struct {
	RunID       string
	Entry       int
	Sample      run.Sample
	ReadLatency time.Duration
	Time        time.Time
}

// RunRecord captures the terminal state of a run.
type RunRecord struct {
	RunID   string
	Status  run.Status
	Samples int
	Elapsed time.Duration
	Time    time.Time
}

// SampleRecorder records telemetry samples.
type SampleRecorder interface {
	RecordSample(rec SampleRecord) error
}

// RunRecorder records run completions.
type RunRecorder interface {
	RecordRun(rec RunRecord) error
}

// Sink combines all recorders implemented by the observability backends.
type Sink interface {
	SampleRecorder
	RunRecorder
	Close() error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordSample(SampleRecord) error { return nil }
func (NopSink) RecordRun(RunRecord) error       { return nil }
func (NopSink) Close() error                    { return nil }
