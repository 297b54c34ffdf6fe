//go:build (linux && ftdi) || windows

package kline

import (
	"fmt"
	"time"

	"github.com/roffe/kline/pkg/ftdi"
)

func init() {
	if err := RegisterDriver(&DriverInfo{
		Name:        "ftdi",
		Description: "FTDI USB serial bridge through libftdi / D2XX, selected by VID:PID",
		New:         newFTDITransport,
	}); err != nil {
		panic(err)
	}
}

type ftdiTransport struct {
	dev   *ftdi.Device
	props ftdi.LineProperties
}

func newFTDITransport(cfg *Config) (Transport, error) {
	dev, err := ftdi.OpenUSB(cfg.VID, cfg.PID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.USBID(), err)
	}
	if err := dev.SetFlowControl(ftdi.DISABLED); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to disable flow control: %w", err)
	}
	// default latency timer is 16ms
	if err := dev.SetLatency(2); err != nil {
		cfg.OnMessage("failed to set latency timer: " + err.Error())
	}
	props, _ := ftdiLineProperties(OperatingFormat)
	return &ftdiTransport{dev: dev, props: props}, nil
}

func (t *ftdiTransport) Reset() error {
	if err := t.dev.Reset(); err != nil {
		return err
	}
	return t.dev.Purge(ftdi.FT_PURGE_BOTH)
}

func (t *ftdiTransport) SetBaudRate(baud int) error {
	return t.dev.SetBaudRate(uint(baud))
}

func (t *ftdiTransport) SetLineFormat(f LineFormat) error {
	props, err := ftdiLineProperties(f)
	if err != nil {
		return err
	}
	if err := t.dev.SetLineProperty(props); err != nil {
		return err
	}
	t.props = props
	return nil
}

func (t *ftdiTransport) SetTimeouts(read, write time.Duration) error {
	return t.dev.SetTimeout(read, write)
}

func (t *ftdiTransport) SetBreak(on bool) error {
	if on {
		return t.dev.SetBreakOn(t.props)
	}
	return t.dev.SetBreakOff(t.props)
}

func (t *ftdiTransport) Read(p []byte) (int, error) {
	return t.dev.Read(p)
}

func (t *ftdiTransport) Write(p []byte) (int, error) {
	return t.dev.Write(p)
}

func (t *ftdiTransport) Close() error {
	return t.dev.Close()
}
