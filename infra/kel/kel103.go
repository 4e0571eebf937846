package kel

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/kilianp07/dischargectl/core/device"
	"github.com/kilianp07/dischargectl/infra/logger"
)

// KEL103 drives a Korad KEL103 electronic load over its SCPI serial protocol.
// It implements device.Device. All failures are wrapped in device.Error so
// the runner takes its safe-shutdown path.
type KEL103 struct {
	mu   sync.Mutex
	port serial.Port
	r    *bufio.Reader
	log  logger.Logger
}

// Open connects to the load, applies the read timeout and verifies the
// instrument answers an identification query.
func Open(cfg Config) (*KEL103, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, device.NewError("open port", err)
	}
	if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeoutMS) * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, device.NewError("set read timeout", err)
	}
	k := newKEL103(port)
	idn, err := k.Identify()
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	k.log.Infof("connected to %s on %s", idn, cfg.Port)
	return k, nil
}

func newKEL103(port serial.Port) *KEL103 {
	return &KEL103{port: port, r: bufio.NewReader(port), log: logger.New("kel103")}
}

// Identify returns the instrument identification string.
func (k *KEL103) Identify() (string, error) {
	return k.query("*IDN?")
}

// SetMode programs the regulation function and its setpoint.
func (k *KEL103) SetMode(mode device.Mode, setpoint float64) error {
	switch mode {
	case device.ModeConstantCurrent:
		if err := k.command(":FUNC CC"); err != nil {
			return err
		}
		return k.command(fmt.Sprintf(":CURR %.3fA", setpoint))
	case device.ModeConstantPower:
		if err := k.command(":FUNC CW"); err != nil {
			return err
		}
		return k.command(fmt.Sprintf(":POW %.3fW", setpoint))
	default:
		return device.NewError("set mode", fmt.Errorf("unsupported mode %v", mode))
	}
}

// Enable turns the load input on.
func (k *KEL103) Enable() error { return k.command(":INP ON") }

// Disable turns the load input off.
func (k *KEL103) Disable() error { return k.command(":INP OFF") }

// ReadTelemetry measures voltage, current and power at the input terminals.
func (k *KEL103) ReadTelemetry() (device.Telemetry, error) {
	v, err := k.measure(":MEAS:VOLT?")
	if err != nil {
		return device.Telemetry{}, err
	}
	i, err := k.measure(":MEAS:CURR?")
	if err != nil {
		return device.Telemetry{}, err
	}
	p, err := k.measure(":MEAS:POW?")
	if err != nil {
		return device.Telemetry{}, err
	}
	return device.Telemetry{Voltage: v, Current: i, Power: p}, nil
}

// Close releases the serial port.
func (k *KEL103) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.port.Close()
}

func (k *KEL103) command(cmd string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, err := k.port.Write([]byte(cmd + "\n")); err != nil {
		return device.NewError(cmd, err)
	}
	return nil
}

func (k *KEL103) query(cmd string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, err := k.port.Write([]byte(cmd + "\n")); err != nil {
		return "", device.NewError(cmd, err)
	}
	line, err := k.r.ReadString('\n')
	if err != nil {
		return "", device.NewError(cmd, err)
	}
	return strings.TrimSpace(line), nil
}

// measure runs a :MEAS query and strips the unit suffix from the reply,
// e.g. "4.123V" or "0.500A".
func (k *KEL103) measure(cmd string) (float64, error) {
	resp, err := k.query(cmd)
	if err != nil {
		return 0, err
	}
	trimmed := strings.TrimRight(resp, "VAWvaw")
	val, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, device.NewError(cmd, fmt.Errorf("unexpected reply %q", resp))
	}
	return val, nil
}
