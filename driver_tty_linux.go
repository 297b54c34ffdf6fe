package kline

import (
	"fmt"
	"strings"
	"time"

	"github.com/roffe/kline/pkg/tty"
)

func init() {
	if err := RegisterDriver(&DriverInfo{
		Name:         "tty",
		Description:  "kernel serial device, --port or first port matching VID:PID",
		RequiresPort: true,
		New:          newTTYTransport,
	}); err != nil {
		panic(err)
	}
}

type ttyTransport struct {
	port *tty.Port
}

func newTTYTransport(cfg *Config) (Transport, error) {
	name, err := resolvePort(cfg)
	if err != nil {
		return nil, err
	}
	p, err := tty.Open(name)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(p.Base(), "ttyUSB") {
		if err := p.SetLatencyTimer(1); err != nil {
			cfg.debugf("%v", err)
		}
	}
	return &ttyTransport{port: p}, nil
}

func resolvePort(cfg *Config) (string, error) {
	if cfg.Port != "" {
		return cfg.Port, nil
	}
	names, err := tty.Find(cfg.VID, cfg.PID)
	if err != nil {
		return "", err
	}
	if len(names) > 1 {
		cfg.OnMessage(fmt.Sprintf("%d ports match %s, using %s", len(names), cfg.USBID(), names[0]))
	}
	return names[0], nil
}

func (t *ttyTransport) Reset() error {
	return t.port.Flush()
}

func (t *ttyTransport) SetBaudRate(baud int) error {
	return t.port.SetBaudRate(baud)
}

func (t *ttyTransport) SetLineFormat(f LineFormat) error {
	parity, err := ttyParity(f)
	if err != nil {
		return err
	}
	return t.port.SetLineProperties(f.DataBits, parity, f.StopBits)
}

func ttyParity(f LineFormat) (tty.Parity, error) {
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if f.Parity == OddParity {
		return tty.ParityOdd, nil
	}
	return tty.ParityNone, nil
}

func (t *ttyTransport) SetTimeouts(read, write time.Duration) error {
	t.port.SetReadTimeout(read)
	t.port.SetWriteTimeout(write)
	return nil
}

func (t *ttyTransport) SetBreak(on bool) error {
	return t.port.SetBreak(on)
}

func (t *ttyTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

func (t *ttyTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *ttyTransport) Close() error {
	return t.port.Close()
}
