package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/internal/eventbus"
)

type recordSink struct {
	mu      sync.Mutex
	samples int
	runs    int
}

func (r *recordSink) RecordSample(coremetrics.SampleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples++
	return nil
}

func (r *recordSink) RecordRun(coremetrics.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return nil
}

func (r *recordSink) Close() error { return nil }

func (r *recordSink) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples, r.runs
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordSample(coremetrics.SampleRecord{}); err != nil {
		t.Fatalf("record sample: %v", err)
	}
	if err := m.RecordRun(coremetrics.RunRecord{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	for _, s := range []*recordSink{s1, s2} {
		samples, runs := s.counts()
		if samples != 1 || runs != 1 {
			t.Fatalf("records not forwarded: samples=%d runs=%d", samples, runs)
		}
	}
}

func TestEventCollector(t *testing.T) {
	bus := eventbus.New[run.Event]()
	sink := &recordSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartEventCollector(ctx, bus, sink)

	bus.Publish(run.SampleEvent{RunID: "r", Sample: run.Sample{Voltage: 4}})
	bus.Publish(run.StateEvent{RunID: "r", Status: run.StatusCompleted})

	// Closing the bus must let the collector drain the pending events
	// before it signals done.
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("collector did not stop after bus close")
	}
	if s, r := sink.counts(); s != 1 || r != 1 {
		t.Fatalf("collector did not forward events: samples=%d runs=%d", s, r)
	}
}

func TestEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, &recordSink{})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected closed channel for nil bus")
	}
}
