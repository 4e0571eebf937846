package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/dischargectl/core/run"
)

func TestSummarize(t *testing.T) {
	samples := []run.Sample{
		{Elapsed: 0, Voltage: 4.0, Current: 2.0, Power: 8.0},
		{Elapsed: 30 * time.Minute, Voltage: 3.8, Current: 2.0, Power: 7.6},
		{Elapsed: time.Hour, Voltage: 3.6, Current: 2.0, Power: 7.2},
	}
	s, err := Summarize(samples)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Samples != 3 {
		t.Fatalf("samples = %d", s.Samples)
	}
	if s.MinVoltage != 3.6 || s.MaxVoltage != 4.0 {
		t.Fatalf("voltage range [%v, %v]", s.MinVoltage, s.MaxVoltage)
	}
	if math.Abs(s.MeanVoltage-3.8) > 1e-9 {
		t.Fatalf("mean voltage %v", s.MeanVoltage)
	}
	// Constant 2 A over one hour.
	if math.Abs(s.DeliveredAh-2.0) > 1e-9 {
		t.Fatalf("delivered %v Ah", s.DeliveredAh)
	}
	if math.Abs(s.DeliveredWh-7.6) > 1e-9 {
		t.Fatalf("delivered %v Wh", s.DeliveredWh)
	}
	if s.Cutoff || s.Failed {
		t.Fatalf("unexpected flags %+v", s)
	}
}

func TestSummarizeFlags(t *testing.T) {
	samples := []run.Sample{
		{Elapsed: 0, Voltage: 4.0, Current: 2.0, Power: 8.0},
		{Elapsed: time.Second, Voltage: 2.5, Current: 2.0, Power: 5.0, Flag: run.FlagCutoff},
	}
	s, err := Summarize(samples)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !s.Cutoff {
		t.Fatalf("cutoff flag not detected")
	}
	if s.MinVoltage != 2.5 {
		t.Fatalf("cutoff sample excluded from stats: %v", s.MinVoltage)
	}

	samples = append(samples, run.Sample{Elapsed: 2 * time.Second, Flag: run.FlagError})
	s, err = Summarize(samples)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !s.Failed {
		t.Fatalf("error flag not detected")
	}
	if s.Samples != 2 {
		t.Fatalf("error marker counted as telemetry: %d", s.Samples)
	}
	if s.MinVoltage != 2.5 {
		t.Fatalf("error marker skewed stats: %v", s.MinVoltage)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, err := Summarize(nil); err == nil {
		t.Fatalf("expected error for empty log")
	}
	if _, err := Summarize([]run.Sample{{Flag: run.FlagError}}); err == nil {
		t.Fatalf("expected error for marker-only log")
	}
}

func TestWriters(t *testing.T) {
	s := Summary{Samples: 2, DurationSec: 5, MinVoltage: 2.5, MaxVoltage: 4.0, MeanVoltage: 3.25, Cutoff: true}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, s); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"cutoff": true`) {
		t.Fatalf("json output: %s", buf.String())
	}

	buf.Reset()
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv output: %s", buf.String())
	}
	if !strings.HasPrefix(lines[1], "2,5.000,2.5000,4.0000") {
		t.Fatalf("csv record: %s", lines[1])
	}
}
