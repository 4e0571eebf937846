package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/dischargectl/core/device"
)

const validCSV = `start_offset_seconds,mode,setpoint,duration_seconds
0,CC,2.0,300
300,CP,25,300
600,CC,0.5,120
`

func TestParseValid(t *testing.T) {
	s, err := Parse(strings.NewReader(validCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(s))
	}
	if s[0].Mode != device.ModeConstantCurrent || s[0].Setpoint != 2.0 {
		t.Fatalf("bad first entry %+v", s[0])
	}
	if s[1].Mode != device.ModeConstantPower || s[1].Start != 300*time.Second {
		t.Fatalf("bad second entry %+v", s[1])
	}
	if s.TotalDuration() != 720*time.Second {
		t.Fatalf("total duration %s", s.TotalDuration())
	}
}

func TestParseSortsByStart(t *testing.T) {
	data := `start_offset_seconds,mode,setpoint,duration_seconds
600,CC,0.5,60
0,CC,2.0,300
`
	s, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s[0].Start != 0 || s[1].Start != 600*time.Second {
		t.Fatalf("entries not sorted: %+v", s)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"missing header":    "",
		"bad header":        "time,current\n0,1\n",
		"non-numeric start": "start_offset_seconds,mode,setpoint,duration_seconds\nabc,CC,1,10\n",
		"unknown mode":      "start_offset_seconds,mode,setpoint,duration_seconds\n0,CV,1,10\n",
		"non-numeric set":   "start_offset_seconds,mode,setpoint,duration_seconds\n0,CC,x,10\n",
		"negative duration": "start_offset_seconds,mode,setpoint,duration_seconds\n0,CC,1,-1\n",
		"negative setpoint": "start_offset_seconds,mode,setpoint,duration_seconds\n0,CC,-1,10\n",
		"overlap":           "start_offset_seconds,mode,setpoint,duration_seconds\n0,CC,1,100\n50,CC,2,100\n",
		"no entries":        "start_offset_seconds,mode,setpoint,duration_seconds\n",
	}
	for name, data := range cases {
		_, err := Parse(strings.NewReader(data))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var ferr *FormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("%s: expected FormatError, got %T", name, err)
		}
	}
}

func TestParseAdjacentEntriesAllowed(t *testing.T) {
	data := `start_offset_seconds,mode,setpoint,duration_seconds
0,CC,1,100
100,CC,2,100
`
	if _, err := Parse(strings.NewReader(data)); err != nil {
		t.Fatalf("adjacent entries should be valid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.csv")
	if err := os.WriteFile(path, []byte(validCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(s))
	}
	if _, err := Load(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
