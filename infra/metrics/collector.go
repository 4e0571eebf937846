package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/infra/logger"
	"github.com/kilianp07/dischargectl/internal/eventbus"
)

// StartEventCollector subscribes to the run event bus and forwards samples and
// run completions to the sink. It stops when the context is canceled or the
// bus is closed; the returned channel is closed once every pending event has
// been forwarded, so a caller closing the bus can wait for the terminal run
// record to reach the sink.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[run.Event], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		forward := func(ev run.Event) {
			switch e := ev.(type) {
			case run.SampleEvent:
				rec := coremetrics.SampleRecord{RunID: e.RunID, Entry: e.Entry, Sample: e.Sample, ReadLatency: e.ReadLatency, Time: e.Time}
				if err := sink.RecordSample(rec); err != nil {
					log.Errorf("record sample: %v", err)
				}
			case run.StateEvent:
				rec := coremetrics.RunRecord{RunID: e.RunID, Status: e.Status, Samples: e.Samples, Elapsed: e.Elapsed, Time: e.Time}
				if err := sink.RecordRun(rec); err != nil {
					log.Errorf("record run: %v", err)
				}
			}
		}
		for {
			select {
			case <-ctx.Done():
				// Flush what is already buffered so the terminal event
				// is not lost on an abort.
				for {
					select {
					case ev, ok := <-sub:
						if !ok {
							return
						}
						forward(ev)
					default:
						return
					}
				}
			case ev, ok := <-sub:
				if !ok {
					return
				}
				forward(ev)
			}
		}
	}()
	return done
}
