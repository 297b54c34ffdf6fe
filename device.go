package kline

import (
	"fmt"
	"time"
)

// Device owns one transceiver session. It is not safe for concurrent use.
type Device struct {
	cfg    *Config
	driver *DriverInfo
	tr     Transport
	format LineFormat
	state  LineState
	clk    clock
}

// New binds a Device to the configured driver and USB id. Nothing is
// acquired until Open.
func New(cfg *Config) (*Device, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	driver, err := lookupDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return newDevice(cfg, driver), nil
}

func newDevice(cfg *Config, driver *DriverInfo) *Device {
	cfg.setDefaults()
	return &Device{
		cfg:    cfg,
		driver: driver,
		clk:    systemClock{},
	}
}

func (d *Device) Name() string {
	return d.driver.Name
}

func (d *Device) IsOpen() bool {
	return d.tr != nil
}

// Format returns the last line format applied successfully
func (d *Device) Format() LineFormat {
	return d.format
}

// LineState returns the last line state applied successfully
func (d *Device) LineState() LineState {
	return d.state
}

// Open acquires the transceiver, resets it and configures baudrate, 8N1 and
// read/write timeouts. On failure everything acquired is released again.
func (d *Device) Open(baudRate, timeoutMs int) error {
	if d.tr != nil {
		return newError(OpOpen, ErrAlreadyOpen)
	}
	if baudRate <= 0 {
		return newError(OpBaudRate, fmt.Errorf("invalid baudrate %d", baudRate))
	}
	if timeoutMs <= 0 {
		return newError(OpTimeout, fmt.Errorf("invalid timeout %dms", timeoutMs))
	}
	tr, err := d.driver.New(d.cfg)
	if err != nil {
		return newError(OpOpen, err)
	}

	fail := func(op Op, err error) error {
		if cerr := tr.Close(); cerr != nil {
			d.cfg.OnMessage("close after failed open: " + cerr.Error())
		}
		return newError(op, err)
	}

	if err := tr.Reset(); err != nil {
		return fail(OpReset, err)
	}
	if err := tr.SetBaudRate(baudRate); err != nil {
		return fail(OpBaudRate, err)
	}
	if err := tr.SetLineFormat(OperatingFormat); err != nil {
		return fail(OpFormat, err)
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if err := tr.SetTimeouts(timeout, timeout); err != nil {
		return fail(OpTimeout, err)
	}

	d.tr = tr
	d.format = OperatingFormat
	d.state = Idle
	d.cfg.debugf("%s opened at %d baud, %s, timeout %v", d.driver.Name, baudRate, OperatingFormat, timeout)
	return nil
}

// Close releases the line, restores 8N1 and frees the transceiver. Failures
// along the way are logged, Close always returns nil and may be called any
// number of times.
func (d *Device) Close() error {
	if d.tr == nil {
		return nil
	}
	tr := d.tr
	d.tr = nil

	if err := tr.SetBreak(false); err != nil {
		d.cfg.OnMessage("failed to release line on close: " + err.Error())
	}
	if err := tr.SetLineFormat(OperatingFormat); err != nil {
		d.cfg.OnMessage("failed to restore " + OperatingFormat.String() + " on close: " + err.Error())
	}
	if err := tr.Close(); err != nil {
		d.cfg.OnMessage("failed to close " + d.driver.Name + ": " + err.Error())
	}
	d.cfg.debugf("%s closed", d.driver.Name)
	return nil
}

// Write sends raw bytes and returns how many the transport accepted
func (d *Device) Write(p []byte) (int, error) {
	if d.tr == nil {
		return 0, newError(OpWrite, ErrNotOpen)
	}
	n, err := d.tr.Write(p)
	if err != nil {
		return n, newError(OpWrite, err)
	}
	return n, nil
}

// Read returns up to bufferSize bytes. A read timeout yields an empty slice
// and no error.
func (d *Device) Read(bufferSize int) ([]byte, error) {
	if d.tr == nil {
		return nil, newError(OpRead, ErrNotOpen)
	}
	if bufferSize <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, bufferSize)
	n, err := d.tr.Read(buf)
	if err != nil {
		return nil, newError(OpRead, err)
	}
	return buf[:n], nil
}

func (d *Device) SetFormat(f LineFormat) error {
	if d.tr == nil {
		return newError(OpFormat, ErrNotOpen)
	}
	if !f.Valid() {
		return newError(OpFormat, ErrUnsupportedFormat)
	}
	if err := d.tr.SetLineFormat(f); err != nil {
		return newError(OpFormat, err)
	}
	d.format = f
	return nil
}

// SetLineState drives the transmit line, Active holds a break and Idle
// releases it
func (d *Device) SetLineState(s LineState) error {
	if d.tr == nil {
		return newError(OpLineState, ErrNotOpen)
	}
	if err := d.tr.SetBreak(bool(s)); err != nil {
		return newError(OpLineState, err)
	}
	d.state = s
	return nil
}
