package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dischargectl/core/device"
	"github.com/kilianp07/dischargectl/core/logger"
	"github.com/kilianp07/dischargectl/core/schedule"
	"github.com/kilianp07/dischargectl/internal/eventbus"
)

// Runner executes a discharge schedule against a load device. It owns the
// transient run state; a Runner must not be used for two runs concurrently.
type Runner struct {
	runID  string
	log    logger.Logger
	events *eventbus.Bus[Event]
}

// NewRunner creates a Runner. The event bus may be nil when no observers are
// attached.
func NewRunner(runID string, log logger.Logger, events *eventbus.Bus[Event]) *Runner {
	if log == nil {
		log = nopLogger{}
	}
	return &Runner{runID: runID, log: log, events: events}
}

// Run applies each schedule entry to the device at its start offset, sampling
// telemetry every interval and enforcing the safety cutoff. The load is
// commanded off on every exit path, including errors and ctx cancellation.
//
// Exactly one SetMode command is issued per entry; Enable is issued once,
// after the first entry's setpoint is programmed. Each entry is sampled at
// its start and then every interval while it is active; an entry's end offset
// is not sampled. In a gap between entries the previous setpoint is held and
// sampling continues so the cutoff stays armed.
func (r *Runner) Run(ctx context.Context, sched schedule.Schedule, dev device.Device, sink LogSink, limit SafetyLimit, interval time.Duration) Result {
	if len(sched) == 0 {
		return Result{Status: StatusFailed, Err: errors.New("schedule is empty")}
	}
	if interval <= 0 {
		return Result{Status: StatusFailed, Err: fmt.Errorf("sample interval %s must be positive", interval)}
	}
	if limit.MinVoltage < 0 {
		return Result{Status: StatusFailed, Err: fmt.Errorf("min voltage %.3f must not be negative", limit.MinVoltage)}
	}

	st := &runState{}
	start := time.Now()
	disabled := false
	disable := func() {
		if disabled {
			return
		}
		disabled = true
		if err := dev.Disable(); err != nil {
			r.log.Errorf("disable load: %v", err)
		}
	}
	defer disable()

	for i, e := range sched {
		st.entry = i
		if i == 0 {
			// Leading gap: the load is still off, so just wait.
			if e.Start > 0 && !r.wait(ctx, time.Until(start.Add(e.Start))) {
				return r.finish(st, start, StatusAborted, nil)
			}
		} else if e.Start > sched[i-1].End() {
			// Hold the previous setpoint through the gap, cutoff stays armed.
			if res, stop := r.samplePhase(ctx, dev, sink, limit, interval, start, e.Start, st, disable); stop {
				return res
			}
		}

		if err := dev.SetMode(e.Mode, e.Setpoint); err != nil {
			return r.fail(st, start, sink, device.NewError("set mode", err), disable)
		}
		r.log.Infof("entry %d: %s %.3f for %s", i, e.Mode, e.Setpoint, e.Duration)
		r.publish(SetpointEvent{RunID: r.runID, Entry: i, Mode: e.Mode, Setpoint: e.Setpoint, Time: time.Now()})
		if i == 0 {
			if err := dev.Enable(); err != nil {
				return r.fail(st, start, sink, device.NewError("enable", err), disable)
			}
		}

		if res, stop := r.samplePhase(ctx, dev, sink, limit, interval, start, e.End(), st, disable); stop {
			return res
		}
	}

	disable()
	return r.finish(st, start, StatusCompleted, nil)
}

// samplePhase samples telemetry every interval until the run offset reaches
// until. It reports stop=true when the run must terminate early.
func (r *Runner) samplePhase(ctx context.Context, dev device.Device, sink LogSink, limit SafetyLimit, interval time.Duration, start time.Time, until time.Duration, st *runState, disable func()) (res Result, stop bool) {
	phaseEnd := start.Add(until)
	next := time.Now()
	for {
		if !next.Before(phaseEnd) {
			// No sample lands before the phase ends; hold the setpoint.
			if !r.wait(ctx, time.Until(phaseEnd)) {
				return r.finish(st, start, StatusAborted, nil), true
			}
			return Result{}, false
		}
		if !r.wait(ctx, time.Until(next)) {
			return r.finish(st, start, StatusAborted, nil), true
		}

		readStart := time.Now()
		tel, err := dev.ReadTelemetry()
		if err != nil {
			return r.fail(st, start, sink, device.NewError("read telemetry", err), disable), true
		}
		readLatency := time.Since(readStart)
		s := Sample{
			Elapsed: time.Since(start),
			Voltage: tel.Voltage,
			Current: tel.Current,
			Power:   tel.Power,
		}
		cutoff := s.Voltage <= limit.MinVoltage
		if cutoff {
			// Disable before anything else: a sagging cell must not wait
			// for I/O on the log sink.
			s.Flag = FlagCutoff
			disable()
		}
		if err := sink.WriteSample(s); err != nil {
			return r.fail(st, start, nil, fmt.Errorf("write sample: %w", err), disable), true
		}
		st.samples++
		r.publish(SampleEvent{RunID: r.runID, Entry: st.entry, Sample: s, ReadLatency: readLatency, Time: time.Now()})
		r.log.Infof("[%7.1fs] V=%6.3fV I=%6.3fA P=%7.3fW", s.Elapsed.Seconds(), s.Voltage, s.Current, s.Power)
		if cutoff {
			r.log.Warnf("voltage %.3fV at or below cutoff %.3fV, load disabled", s.Voltage, limit.MinVoltage)
			return r.finish(st, start, StatusCutoff, nil), true
		}
		next = next.Add(interval)
	}
}

// fail runs the safe-shutdown path for a device or sink error: the load is
// disabled first, then a final error-flagged marker row is appended when the
// sink is still usable.
func (r *Runner) fail(st *runState, start time.Time, sink LogSink, err error, disable func()) Result {
	disable()
	if sink != nil {
		marker := Sample{Elapsed: time.Since(start), Flag: FlagError}
		if werr := sink.WriteSample(marker); werr == nil {
			st.samples++
		}
	}
	return r.finish(st, start, StatusFailed, err)
}

func (r *Runner) finish(st *runState, start time.Time, status Status, err error) Result {
	elapsed := time.Since(start)
	r.publish(StateEvent{RunID: r.runID, Status: status, Samples: st.samples, Elapsed: elapsed, Time: time.Now()})
	if err != nil {
		r.log.Errorf("run %s after %s: %v", status, elapsed.Round(time.Millisecond), err)
	} else {
		r.log.Infof("run %s after %s, %d samples", status, elapsed.Round(time.Millisecond), st.samples)
	}
	return Result{Status: status, Samples: st.samples, Err: err}
}

func (r *Runner) publish(e Event) {
	if r.events != nil {
		r.events.Publish(e)
	}
}

// wait blocks for d or until ctx is cancelled. It reports false when the run
// was interrupted.
func (r *Runner) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
