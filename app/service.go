package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dischargectl/config"
	"github.com/kilianp07/dischargectl/core/device"
	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/core/schedule"
	"github.com/kilianp07/dischargectl/infra/csvlog"
	"github.com/kilianp07/dischargectl/infra/kel"
	"github.com/kilianp07/dischargectl/infra/logger"
	"github.com/kilianp07/dischargectl/infra/metrics"
	"github.com/kilianp07/dischargectl/infra/mqtt"
	"github.com/kilianp07/dischargectl/internal/eventbus"
	"github.com/kilianp07/dischargectl/simulator"
)

// Options selects the device backing a run.
type Options struct {
	// Simulate replaces the serial instrument with the built-in
	// simulated load.
	Simulate bool
}

// Service owns one discharge run: the device connection, the log sink and the
// attached observers. Close guarantees the load is commanded off.
type Service struct {
	RunID string

	cfg       *config.Config
	sched     schedule.Schedule
	dev       device.Device
	sink      *csvlog.Writer
	bus       *eventbus.Bus[run.Event]
	runner    *run.Runner
	msink     coremetrics.Sink
	publisher *mqtt.Publisher
	log       logger.Logger
}

// New validates the schedule, connects the device and prepares the observers.
// The schedule is loaded before any device command is issued, so a malformed
// file never touches hardware.
func New(cfg *config.Config, sched schedule.Schedule, opts Options) (*Service, error) {
	logg := logger.New("service")
	runID := uuid.NewString()

	var dev device.Device
	if opts.Simulate {
		dev = simulator.NewLoad(cfg.Simulator)
		logg.Infof("using simulated load (capacity %.2f Ah)", cfg.Simulator.CapacityAh)
	} else {
		d, err := kel.Open(cfg.Device)
		if err != nil {
			return nil, fmt.Errorf("open load: %w", err)
		}
		dev = d
	}

	sink, err := csvlog.NewWriter(cfg.Run.LogPath)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("open log: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		s, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			_ = sink.Close()
			_ = dev.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var msink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		msink = sinks[0]
	} else if len(sinks) > 1 {
		msink = metrics.NewMultiSink(sinks...)
	}

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = sink.Close()
			_ = dev.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	bus := eventbus.New[run.Event]()
	return &Service{
		RunID:     runID,
		cfg:       cfg,
		sched:     sched,
		dev:       dev,
		sink:      sink,
		bus:       bus,
		runner:    run.NewRunner(runID, logger.New("runner"), bus),
		msink:     msink,
		publisher: publisher,
		log:       logg,
	}, nil
}

// Run executes the schedule and blocks until it finishes or ctx is cancelled.
// Before returning it closes the event bus and waits for the observers to
// drain, so the terminal status has been forwarded to every sink.
func (s *Service) Run(ctx context.Context) run.Result {
	observers := []<-chan struct{}{metrics.StartEventCollector(ctx, s.bus, s.msink)}
	if s.publisher != nil {
		observers = append(observers, s.publisher.Start(ctx, s.bus))
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	interval := time.Duration(s.cfg.Run.SampleIntervalSeconds * float64(time.Second))
	limit := run.SafetyLimit{MinVoltage: s.cfg.Run.MinVoltage}
	s.log.Infof("run %s: %d entries, interval %s, cutoff %.3fV, log %s",
		s.RunID, len(s.sched), interval, limit.MinVoltage, s.cfg.Run.LogPath)
	res := s.runner.Run(ctx, s.sched, s.dev, s.sink, limit, interval)

	s.bus.Close()
	for _, done := range observers {
		<-done
	}
	return res
}

// Close releases every resource. The load is commanded off one more time in
// case the runner never started.
func (s *Service) Close() error {
	if err := s.dev.Disable(); err != nil {
		s.log.Errorf("disable load: %v", err)
	}
	s.bus.Close()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.log.Errorf("publisher close: %v", err)
		}
	}
	if err := s.msink.Close(); err != nil {
		s.log.Errorf("metrics close: %v", err)
	}
	if err := s.sink.Close(); err != nil {
		_ = s.dev.Close()
		return err
	}
	return s.dev.Close()
}
