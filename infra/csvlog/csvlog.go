package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/dischargectl/core/run"
)

var header = []string{"elapsed_seconds", "voltage_volts", "current_amps", "power_watts", "flag"}

// Writer is an append-only CSV log sink. Each sample is flushed to disk as
// soon as it is written so a partial log survives an aborted run.
type Writer struct {
	mu sync.Mutex
	f  *os.File
	cw *csv.Writer
}

// NewWriter creates the log file, truncating any previous content, and writes
// the header row.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, cw: cw}, nil
}

// WriteSample appends one sample row and flushes it.
func (w *Writer) WriteSample(s run.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec := []string{
		strconv.FormatFloat(s.Elapsed.Seconds(), 'f', 3, 64),
		strconv.FormatFloat(s.Voltage, 'f', 4, 64),
		strconv.FormatFloat(s.Current, 'f', 4, 64),
		strconv.FormatFloat(s.Power, 'f', 4, 64),
		s.Flag,
	}
	if err := w.cw.Write(rec); err != nil {
		return err
	}
	w.cw.Flush()
	return w.cw.Error()
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// Read loads every sample row of a log file written by Writer.
func Read(path string) ([]run.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parse(f)
}

func parse(r io.Reader) ([]run.Sample, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("log: missing header row")
	}
	if err != nil {
		return nil, err
	}
	if len(head) != len(header) || head[0] != header[0] {
		return nil, fmt.Errorf("log: unexpected header %v", head)
	}
	var samples []run.Sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		s, err := parseRow(rec)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseRow(rec []string) (run.Sample, error) {
	if len(rec) != len(header) {
		return run.Sample{}, fmt.Errorf("log: expected %d fields, got %d", len(header), len(rec))
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return run.Sample{}, fmt.Errorf("log: field %q is not numeric", rec[i])
		}
		vals[i] = v
	}
	return run.Sample{
		Elapsed: time.Duration(vals[0] * float64(time.Second)),
		Voltage: vals[1],
		Current: vals[2],
		Power:   vals[3],
		Flag:    rec[4],
	}, nil
}
