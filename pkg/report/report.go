package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/dischargectl/core/run"
)

// Summary aggregates a finished discharge log.
type Summary struct {
	Samples     int           `json:"samples"`
	Duration    time.Duration `json:"-"`
	DurationSec float64       `json:"duration_seconds"`
	MinVoltage  float64       `json:"min_voltage"`
	MaxVoltage  float64       `json:"max_voltage"`
	MeanVoltage float64       `json:"mean_voltage"`
	DeliveredAh float64       `json:"delivered_ah"`
	DeliveredWh float64       `json:"delivered_wh"`
	Cutoff      bool          `json:"cutoff"`
	Failed      bool          `json:"failed"`
}

// Summarize computes discharge statistics over the logged samples. Charge and
// energy are integrated with the trapezoidal rule over the sample timeline.
// Error marker rows carry no telemetry and only set the Failed flag.
func Summarize(samples []run.Sample) (Summary, error) {
	var s Summary
	var hours, volts, amps, watts []float64
	for _, smp := range samples {
		switch smp.Flag {
		case run.FlagError:
			s.Failed = true
			continue
		case run.FlagCutoff:
			s.Cutoff = true
		}
		hours = append(hours, smp.Elapsed.Hours())
		volts = append(volts, smp.Voltage)
		amps = append(amps, smp.Current)
		watts = append(watts, smp.Power)
		if smp.Elapsed > s.Duration {
			s.Duration = smp.Elapsed
		}
	}
	if len(volts) == 0 {
		return Summary{}, errors.New("report: log has no telemetry samples")
	}
	s.Samples = len(volts)
	s.DurationSec = s.Duration.Seconds()
	s.MinVoltage = floats.Min(volts)
	s.MaxVoltage = floats.Max(volts)
	s.MeanVoltage = stat.Mean(volts, nil)
	if len(hours) > 1 {
		s.DeliveredAh = integrate.Trapezoidal(hours, amps)
		s.DeliveredWh = integrate.Trapezoidal(hours, watts)
	}
	return s, nil
}

// WriteJSON writes the summary to w in JSON format.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes the summary to w as a single CSV record.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"samples", "duration_seconds", "min_voltage", "max_voltage",
		"mean_voltage", "delivered_ah", "delivered_wh", "cutoff", "failed",
	}); err != nil {
		return err
	}
	rec := []string{
		strconv.Itoa(s.Samples),
		strconv.FormatFloat(s.DurationSec, 'f', 3, 64),
		strconv.FormatFloat(s.MinVoltage, 'f', 4, 64),
		strconv.FormatFloat(s.MaxVoltage, 'f', 4, 64),
		strconv.FormatFloat(s.MeanVoltage, 'f', 4, 64),
		strconv.FormatFloat(s.DeliveredAh, 'f', 4, 64),
		strconv.FormatFloat(s.DeliveredWh, 'f', 4, 64),
		strconv.FormatBool(s.Cutoff),
		strconv.FormatBool(s.Failed),
	}
	if err := cw.Write(rec); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
