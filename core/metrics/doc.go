// Package metrics defines the recorder interfaces implemented by the
// observability sinks. PromSink and InfluxSink in infra/metrics record
// telemetry samples and run completions and can be combined with
// NewMultiSink. The bus collector forwards runner events to the
// configured sinks off the control path.
package metrics
