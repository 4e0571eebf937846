package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
)

// PromSink exposes run telemetry as Prometheus metrics.
type PromSink struct {
	voltage     prometheus.Gauge
	current     prometheus.Gauge
	power       prometheus.Gauge
	samples     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	lastSeen    prometheus.Gauge
	readLatency prometheus.Histogram
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_voltage_volts", Help: "Last sampled battery voltage"}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_current_amps", Help: "Last sampled load current"}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_power_watts", Help: "Last sampled load power"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discharge_samples_total", Help: "Telemetry samples taken"}, []string{"flag"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discharge_runs_total", Help: "Finished discharge runs"}, []string{"status"}),
		lastSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discharge_last_sample_timestamp_seconds", Help: "Unix timestamp of the last sample"}),
		readLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "discharge_read_latency_seconds",
			Help:    "Time the device took to answer the measurement queries",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{s.voltage, s.current, s.power, s.samples, s.runs, s.lastSeen, s.readLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordSample updates the telemetry gauges and sample counter.
func (s *PromSink) RecordSample(rec coremetrics.SampleRecord) error {
	s.voltage.Set(rec.Sample.Voltage)
	s.current.Set(rec.Sample.Current)
	s.power.Set(rec.Sample.Power)
	s.samples.WithLabelValues(rec.Sample.Flag).Inc()
	s.lastSeen.SetToCurrentTime()
	s.readLatency.Observe(rec.ReadLatency.Seconds())
	return nil
}

// RecordRun increments the per-status run counter.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	s.runs.WithLabelValues(rec.Status.String()).Inc()
	return nil
}

// Close is a no-op; the registry keeps the collectors.
func (s *PromSink) Close() error { return nil }
