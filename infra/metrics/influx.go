package metrics

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
	"github.com/kilianp07/dischargectl/infra/logger"
)

// InfluxSink writes run telemetry to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSample writes the sample as a discharge_sample point.
func (s *InfluxSink) RecordSample(rec coremetrics.SampleRecord) error {
	p := influxdb2.NewPoint("discharge_sample",
		map[string]string{
			"run_id": rec.RunID,
			"entry":  strconv.Itoa(rec.Entry),
			"flag":   rec.Sample.Flag,
		},
		map[string]interface{}{
			"elapsed_seconds": rec.Sample.Elapsed.Seconds(),
			"voltage":         rec.Sample.Voltage,
			"current":         rec.Sample.Current,
			"power":           rec.Sample.Power,
		},
		rec.Time,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the terminal run state as a discharge_run point.
func (s *InfluxSink) RecordRun(rec coremetrics.RunRecord) error {
	p := influxdb2.NewPoint("discharge_run",
		map[string]string{
			"run_id": rec.RunID,
			"status": rec.Status.String(),
		},
		map[string]interface{}{
			"samples":         rec.Samples,
			"elapsed_seconds": rec.Elapsed.Seconds(),
		},
		rec.Time,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the InfluxDB client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
