package kline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlowInit(t *testing.T) {
	r := newTestRig(t)
	var seen []Bit
	r.cfg.OnBit = func(index int, bit Bit) {
		assert.Equal(t, len(seen), index)
		seen = append(seen, bit)
	}
	r.open(t)
	opened := len(r.v.Calls())

	start := r.clk.Now()
	require.NoError(t, r.dev.SlowInit(context.Background(), 0x33))

	frame := Encode(0x33)
	assert.Equal(t, frame[:], seen)

	breaks := r.v.CallsTo("SetBreak")
	require.Len(t, breaks, FrameLength+1, "one command per symbol plus the final idle")
	for i, bit := range frame {
		assert.Equal(t, bit == 0, breaks[i].Arg, "symbol %d", i)
		assert.Equal(t, time.Duration(i)*BitDuration, breaks[i].At.Sub(start), "symbol %d", i)
	}
	last := breaks[FrameLength]
	assert.Equal(t, false, last.Arg)
	assert.Equal(t, 2000*time.Millisecond, last.At.Sub(breaks[0].At))

	var formats []VirtualCall
	for _, c := range r.v.Calls()[opened:] {
		if c.Method == "SetLineFormat" {
			formats = append(formats, c)
		}
	}
	require.Len(t, formats, 2, "Open's 8N1 is not counted")
	assert.Equal(t, InitFormat, formats[0].Arg)
	assert.Equal(t, OperatingFormat, formats[1].Arg)

	calls := methods(r.v.Calls()[opened:])
	assert.Equal(t, "SetLineFormat", calls[0], "7O1 before the first symbol")
	assert.Equal(t, "SetLineFormat", calls[len(calls)-1], "8N1 after the last symbol")
	assert.Empty(t, r.v.CallsTo("Write"), "bit banging never uses the byte path")

	assert.Equal(t, OperatingFormat, r.dev.Format())
	assert.Equal(t, Idle, r.dev.LineState())
	assert.False(t, r.v.Break())
}

func TestSlowInitFrames(t *testing.T) {
	for _, addr := range []byte{0x00, 0x01, 0x7F, 0xFF} {
		r := newTestRig(t)
		r.open(t)
		require.NoError(t, r.dev.SlowInit(context.Background(), addr))
		breaks := r.v.CallsTo("SetBreak")
		require.Len(t, breaks, FrameLength+1)
		for i, bit := range Encode(addr) {
			assert.Equal(t, bit.LineState() == Active, breaks[i].Arg)
		}
	}
}

func TestSlowInitNotOpen(t *testing.T) {
	r := newTestRig(t)
	err := r.dev.SlowInit(context.Background(), 0x33)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.True(t, IsOp(err, OpFormat))
}

func TestSlowInitFormatRejected(t *testing.T) {
	r := newTestRig(t)
	r.open(t)
	r.v.Fail("SetLineFormat", errors.New("rejected"))

	err := r.dev.SlowInit(context.Background(), 0x33)
	require.Error(t, err)
	assert.True(t, IsOp(err, OpFormat))
	assert.Empty(t, r.v.CallsTo("SetBreak"), "no symbol sent")
	assert.Equal(t, OperatingFormat, r.dev.Format(), "format untouched")
}

func TestSlowInitLineStateFailure(t *testing.T) {
	r := newTestRig(t)
	injected := errors.New("stall")
	r.cfg.OnBit = func(index int, bit Bit) {
		if index == 3 {
			r.v.Fail("SetBreak", injected)
		}
	}
	r.open(t)

	err := r.dev.SlowInit(context.Background(), 0x33)
	require.Error(t, err)
	assert.True(t, IsOp(err, OpLineState))
	assert.True(t, errors.Is(err, injected))

	// 4 symbols, the failed 5th and the failed release attempt
	assert.Len(t, r.v.CallsTo("SetBreak"), 6)
	assert.Equal(t, OperatingFormat, r.dev.Format(), "8N1 restored")
	assert.Equal(t, OperatingFormat, r.v.Format())
	assert.Len(t, r.messages, 1, "release failure logged")
}

func TestSlowInitRestoreFailure(t *testing.T) {
	r := newTestRig(t)
	r.cfg.OnBit = func(index int, bit Bit) {
		if index == 9 {
			r.v.Fail("SetLineFormat", errors.New("rejected"))
		}
	}
	r.open(t)

	err := r.dev.SlowInit(context.Background(), 0x33)
	require.Error(t, err)
	assert.True(t, IsOp(err, OpFormat))
	assert.Equal(t, InitFormat, r.dev.Format(), "format is left as 7O1")
	assert.Equal(t, Idle, r.dev.LineState())
	assert.Len(t, r.messages, 1)
}

func TestSlowInitCancel(t *testing.T) {
	r := newTestRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.cfg.OnBit = func(index int, bit Bit) {
		if index == 2 {
			cancel()
		}
	}
	r.open(t)

	err := r.dev.SlowInit(ctx, 0x33)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, IsOp(err, OpSlowInit))
	assert.Equal(t, "slow init aborted: context canceled", err.Error())

	breaks := r.v.CallsTo("SetBreak")
	require.Len(t, breaks, 4, "3 symbols and the release")
	assert.Equal(t, false, breaks[3].Arg)
	assert.Equal(t, OperatingFormat, r.dev.Format())
	assert.Equal(t, Idle, r.dev.LineState())
}

func TestSlowInitThenIO(t *testing.T) {
	r := newTestRig(t)
	r.open(t)
	require.NoError(t, r.dev.SlowInit(context.Background(), 0x01))

	r.v.Feed([]byte{0x55, 0x01, 0x8A})
	got, err := r.dev.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x01, 0x8A}, got)

	n, err := r.dev.Write([]byte{0x75})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, r.dev.Close())
}
