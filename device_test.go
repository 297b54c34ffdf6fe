package kline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the clock by d and fires at once
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type testRig struct {
	dev      *Device
	v        *Virtual
	clk      *fakeClock
	cfg      *Config
	messages []string
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{
		v:   NewVirtual(),
		clk: newFakeClock(),
	}
	r.v.Now = r.clk.Now
	r.cfg = &Config{
		OnMessage: func(msg string) {
			r.messages = append(r.messages, msg)
		},
	}
	driver := &DriverInfo{
		Name: "test",
		New: func(*Config) (Transport, error) {
			return r.v, nil
		},
	}
	r.dev = newDevice(r.cfg, driver)
	r.dev.clk = r.clk
	return r
}

func (r *testRig) open(t *testing.T) {
	t.Helper()
	require.NoError(t, r.dev.Open(10400, 500))
}

func methods(calls []VirtualCall) []string {
	var out []string
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

func TestOpen(t *testing.T) {
	r := newTestRig(t)
	r.open(t)

	assert.True(t, r.dev.IsOpen())
	assert.Equal(t, OperatingFormat, r.dev.Format())
	assert.Equal(t, Idle, r.dev.LineState())
	assert.Equal(t, []string{"Reset", "SetBaudRate", "SetLineFormat", "SetTimeouts"}, methods(r.v.Calls()))
	assert.Equal(t, 10400, r.v.BaudRate())
	assert.Equal(t, OperatingFormat, r.v.Format())
	assert.Equal(t, 500*time.Millisecond, r.v.CallsTo("SetTimeouts")[0].Arg)
	assert.Equal(t, DefaultVID, r.cfg.VID)
	assert.Equal(t, DefaultPID, r.cfg.PID)
}

func TestOpenTwice(t *testing.T) {
	r := newTestRig(t)
	r.open(t)
	err := r.dev.Open(10400, 500)
	require.Error(t, err)
	assert.True(t, IsOp(err, OpOpen))
	assert.True(t, errors.Is(err, ErrAlreadyOpen))
	assert.True(t, r.dev.IsOpen())
}

func TestOpenFailure(t *testing.T) {
	tests := []struct {
		method string
		op     Op
		prefix string
	}{
		{"Reset", OpReset, "unable to reset device: "},
		{"SetBaudRate", OpBaudRate, "unable to set baudrate: "},
		{"SetLineFormat", OpFormat, "unable to set line properties: "},
		{"SetTimeouts", OpTimeout, "unable to set timeouts: "},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := newTestRig(t)
			injected := errors.New("usb stall")
			r.v.Fail(tt.method, injected)

			err := r.dev.Open(10400, 500)
			require.Error(t, err)
			assert.True(t, IsOp(err, tt.op))
			assert.True(t, errors.Is(err, injected))
			assert.Equal(t, tt.prefix+"usb stall", err.Error())
			assert.False(t, r.dev.IsOpen())
			assert.True(t, r.v.Closed(), "transport must be released")

			// the handle stays usable for another attempt
			r.v.Fail(tt.method, nil)
			require.NoError(t, r.dev.Open(10400, 500))
		})
	}
}

func TestOpenInvalidSettings(t *testing.T) {
	tests := []struct {
		name      string
		baud      int
		timeoutMs int
		op        Op
	}{
		{"zero baudrate", 0, 500, OpBaudRate},
		{"negative baudrate", -10400, 500, OpBaudRate},
		{"zero timeout", 10400, 0, OpTimeout},
		{"negative timeout", 10400, -1, OpTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig(t)
			err := r.dev.Open(tt.baud, tt.timeoutMs)
			require.Error(t, err)
			assert.True(t, IsOp(err, tt.op))
			assert.False(t, r.dev.IsOpen())
			assert.Empty(t, r.v.Calls(), "nothing acquired")
		})
	}
}

func TestOpenAcquireFailure(t *testing.T) {
	cfg := &Config{OnMessage: func(string) {}}
	dev := newDevice(cfg, &DriverInfo{
		Name: "broken",
		New: func(*Config) (Transport, error) {
			return nil, errors.New("no device")
		},
	})
	err := dev.Open(10400, 500)
	require.Error(t, err)
	assert.True(t, IsOp(err, OpOpen))
	assert.Equal(t, "unable to open device: no device", err.Error())
	assert.False(t, dev.IsOpen())
}

func TestClose(t *testing.T) {
	t.Run("never opened", func(t *testing.T) {
		r := newTestRig(t)
		assert.NoError(t, r.dev.Close())
		assert.NoError(t, r.dev.Close())
		assert.Empty(t, r.v.Calls())
	})

	t.Run("twice", func(t *testing.T) {
		r := newTestRig(t)
		r.open(t)
		require.NoError(t, r.dev.SetFormat(InitFormat))
		require.NoError(t, r.dev.SetLineState(Active))

		assert.NoError(t, r.dev.Close())
		assert.NoError(t, r.dev.Close())
		assert.False(t, r.dev.IsOpen())
		assert.True(t, r.v.Closed())
		assert.Len(t, r.v.CallsTo("Close"), 1)
		assert.False(t, r.v.Break(), "line released")
		assert.Equal(t, OperatingFormat, r.v.Format(), "8N1 restored")
	})

	t.Run("teardown failures are swallowed", func(t *testing.T) {
		r := newTestRig(t)
		r.open(t)
		r.v.Fail("SetBreak", errors.New("break"))
		r.v.Fail("SetLineFormat", errors.New("format"))
		r.v.Fail("Close", errors.New("close"))

		assert.NoError(t, r.dev.Close())
		assert.False(t, r.dev.IsOpen())
		assert.Len(t, r.messages, 3)
		assert.NoError(t, r.dev.Close())
	})
}

func TestRead(t *testing.T) {
	r := newTestRig(t)
	r.open(t)

	got, err := r.dev.Read(256)
	require.NoError(t, err, "timeout is not an error")
	assert.Empty(t, got)
	assert.NotNil(t, got)

	r.v.Feed([]byte{0x55, 0x08, 0x08})
	got, err = r.dev.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x08}, got)
	got, err = r.dev.Read(256)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08}, got)

	got, err = r.dev.Read(0)
	require.NoError(t, err)
	assert.Empty(t, got)

	injected := errors.New("pipe error")
	r.v.Fail("Read", injected)
	got, err = r.dev.Read(256)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, IsOp(err, OpRead))
	assert.True(t, errors.Is(err, injected))
	assert.Equal(t, "read failed: pipe error", err.Error())
}

func TestWrite(t *testing.T) {
	r := newTestRig(t)
	r.open(t)

	n, err := r.dev.Write([]byte("Hello FTDI\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, []byte("Hello FTDI\n"), r.v.Written())

	r.v.Fail("Write", errors.New("timeout"))
	_, err = r.dev.Write([]byte{0x01})
	require.Error(t, err)
	assert.True(t, IsOp(err, OpWrite))
	assert.Equal(t, "write failed: timeout", err.Error())
}

func TestNotOpen(t *testing.T) {
	r := newTestRig(t)

	_, err := r.dev.Write([]byte{1})
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.True(t, IsOp(err, OpWrite))

	_, err = r.dev.Read(1)
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.True(t, IsOp(err, OpRead))

	err = r.dev.SetFormat(InitFormat)
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.True(t, IsOp(err, OpFormat))

	err = r.dev.SetLineState(Active)
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.True(t, IsOp(err, OpLineState))

	assert.Empty(t, r.v.Calls())
}

func TestSetFormat(t *testing.T) {
	r := newTestRig(t)
	r.open(t)

	require.NoError(t, r.dev.SetFormat(InitFormat))
	assert.Equal(t, InitFormat, r.dev.Format())
	assert.Equal(t, InitFormat, r.v.Format())

	for _, f := range []LineFormat{
		{DataBits: 6, Parity: NoParity, StopBits: 1},
		{DataBits: 8, Parity: Parity(7), StopBits: 1},
		{DataBits: 8, Parity: NoParity, StopBits: 2},
	} {
		err := r.dev.SetFormat(f)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), f.String())
	}
	assert.Equal(t, InitFormat, r.dev.Format())

	r.v.Fail("SetLineFormat", errors.New("rejected"))
	err := r.dev.SetFormat(OperatingFormat)
	assert.True(t, IsOp(err, OpFormat))
	assert.Equal(t, InitFormat, r.dev.Format(), "format unchanged on rejection")
}

func TestSetLineState(t *testing.T) {
	r := newTestRig(t)
	r.open(t)

	require.NoError(t, r.dev.SetLineState(Active))
	assert.True(t, r.v.Break())
	assert.Equal(t, Active, r.dev.LineState())
	require.NoError(t, r.dev.SetLineState(Idle))
	assert.False(t, r.v.Break())

	r.v.Fail("SetBreak", errors.New("stall"))
	err := r.dev.SetLineState(Active)
	assert.True(t, IsOp(err, OpLineState))
	assert.Equal(t, "unable to set line state: stall", err.Error())
	assert.Equal(t, Idle, r.dev.LineState())
}

func TestLineFormatString(t *testing.T) {
	assert.Equal(t, "8N1", OperatingFormat.String())
	assert.Equal(t, "7O1", InitFormat.String())
	assert.True(t, OperatingFormat.Valid())
	assert.True(t, InitFormat.Valid())
}
