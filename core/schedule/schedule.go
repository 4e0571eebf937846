package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/dischargectl/core/device"
)

// Entry is one timed setpoint of a discharge schedule.
type Entry struct {
	Start    time.Duration // offset from cycle start
	Mode     device.Mode
	Setpoint float64 // amps for CC, watts for CP
	Duration time.Duration
}

// End returns the offset at which the entry stops being active.
func (e Entry) End() time.Duration { return e.Start + e.Duration }

// Schedule is an ordered sequence of entries, sorted by start offset.
// It is loaded once and never mutated during a run.
type Schedule []Entry

// TotalDuration returns the end offset of the last entry.
func (s Schedule) TotalDuration() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].End()
}

// FormatError reports a malformed schedule file. Line is 1-based and counts
// the header row.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schedule: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("schedule: %s", e.Reason)
}

var header = []string{"start_offset_seconds", "mode", "setpoint", "duration_seconds"}

// Load reads and validates a schedule CSV file.
func Load(path string) (Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads a schedule from r. The expected format is a header row
// start_offset_seconds,mode,setpoint,duration_seconds followed by one entry
// per row. Entries are sorted by start offset and must not overlap.
func Parse(r io.Reader) (Schedule, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{Reason: "missing header row"}
	}
	if err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if len(head) != len(header) {
		return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("expected header %v", header)}
	}
	for i, col := range header {
		if head[i] != col {
			return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("expected column %q, got %q", col, head[i])}
		}
	}

	var s Schedule
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &FormatError{Line: line, Reason: err.Error()}
		}
		e, err := parseEntry(rec)
		if err != nil {
			return nil, &FormatError{Line: line, Reason: err.Error()}
		}
		s = append(s, e)
	}
	if len(s) == 0 {
		return nil, &FormatError{Reason: "schedule has no entries"}
	}

	sort.SliceStable(s, func(i, j int) bool { return s[i].Start < s[j].Start })
	for i := 1; i < len(s); i++ {
		if s[i].Start < s[i-1].End() {
			return nil, &FormatError{Reason: fmt.Sprintf(
				"entries starting at %s and %s overlap", s[i-1].Start, s[i].Start)}
		}
	}
	return s, nil
}

func parseEntry(rec []string) (Entry, error) {
	if len(rec) != 4 {
		return Entry{}, fmt.Errorf("expected 4 fields, got %d", len(rec))
	}
	start, err := strconv.ParseFloat(rec[0], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("start offset %q is not numeric", rec[0])
	}
	if start < 0 {
		return Entry{}, fmt.Errorf("start offset %q is negative", rec[0])
	}
	mode, err := device.ParseMode(rec[1])
	if err != nil {
		return Entry{}, err
	}
	setpoint, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("setpoint %q is not numeric", rec[2])
	}
	if setpoint < 0 {
		return Entry{}, fmt.Errorf("setpoint %q is negative", rec[2])
	}
	dur, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("duration %q is not numeric", rec[3])
	}
	if dur < 0 {
		return Entry{}, fmt.Errorf("duration %q is negative", rec[3])
	}
	return Entry{
		Start:    time.Duration(start * float64(time.Second)),
		Mode:     mode,
		Setpoint: setpoint,
		Duration: time.Duration(dur * float64(time.Second)),
	}, nil
}
