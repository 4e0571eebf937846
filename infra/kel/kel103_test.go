package kel

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"go.bug.st/serial"

	"github.com/kilianp07/dischargectl/core/device"
)

// fakePort scripts SCPI replies keyed by command.
type fakePort struct {
	serial.Port
	written bytes.Buffer
	replies map[string]string
	pending io.Reader
	wErr    error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.wErr != nil {
		return 0, p.wErr
	}
	p.written.Write(b)
	cmd := strings.TrimSpace(string(b))
	if reply, ok := p.replies[cmd]; ok {
		p.pending = strings.NewReader(reply + "\n")
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.pending == nil {
		return 0, io.EOF
	}
	return p.pending.Read(b)
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) commands() []string {
	var out []string
	for _, c := range strings.Split(strings.TrimSpace(p.written.String()), "\n") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func TestSetModeCC(t *testing.T) {
	p := &fakePort{}
	k := newKEL103(p)
	if err := k.SetMode(device.ModeConstantCurrent, 2.0); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	got := p.commands()
	want := []string{":FUNC CC", ":CURR 2.000A"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("commands %v, want %v", got, want)
	}
}

func TestSetModeCP(t *testing.T) {
	p := &fakePort{}
	k := newKEL103(p)
	if err := k.SetMode(device.ModeConstantPower, 25); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	got := p.commands()
	want := []string{":FUNC CW", ":POW 25.000W"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("commands %v, want %v", got, want)
	}
}

func TestEnableDisable(t *testing.T) {
	p := &fakePort{}
	k := newKEL103(p)
	if err := k.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := k.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got := p.commands()
	if len(got) != 2 || got[0] != ":INP ON" || got[1] != ":INP OFF" {
		t.Fatalf("commands %v", got)
	}
}

func TestReadTelemetry(t *testing.T) {
	p := &fakePort{replies: map[string]string{
		":MEAS:VOLT?": "4.123V",
		":MEAS:CURR?": "0.500A",
		":MEAS:POW?":  "2.061W",
	}}
	k := newKEL103(p)
	tel, err := k.ReadTelemetry()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tel.Voltage != 4.123 || tel.Current != 0.5 || tel.Power != 2.061 {
		t.Fatalf("bad telemetry %+v", tel)
	}
}

func TestReadTelemetryBadReply(t *testing.T) {
	p := &fakePort{replies: map[string]string{":MEAS:VOLT?": "garbage"}}
	k := newKEL103(p)
	_, err := k.ReadTelemetry()
	var derr *device.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected device.Error, got %v", err)
	}
}

func TestWriteFailureWrapped(t *testing.T) {
	p := &fakePort{wErr: errors.New("port gone")}
	k := newKEL103(p)
	err := k.Enable()
	var derr *device.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected device.Error, got %v", err)
	}
}

func TestQueryTimeout(t *testing.T) {
	// No reply configured: the read ends without a full line.
	p := &fakePort{}
	k := newKEL103(p)
	if _, err := k.Identify(); err == nil {
		t.Fatalf("expected error on missing reply")
	}
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if cfg.Baud != 115200 || cfg.ReadTimeoutMS != 1000 {
		t.Fatalf("bad defaults %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing port")
	}
	cfg.Port = "/dev/ttyACM0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
