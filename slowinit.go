package kline

import (
	"context"
	"time"
)

// SlowInit addresses an ECU with the ISO 9141-2 5 baud init. The device is
// switched to 7O1, the address frame is played by holding break for every 0
// symbol for BitDuration, the line is released and 8N1 restored. It blocks
// for 10 bit times.
//
// If anything fails after the switch to 7O1 the line is released and 8N1
// restored on a best effort basis, the first error is returned. Check
// Format if the device is to be used afterwards.
func (d *Device) SlowInit(ctx context.Context, address byte) error {
	if err := d.SetFormat(InitFormat); err != nil {
		return err
	}

	frame := Encode(address)
	d.cfg.debugf("sending 5Bd 7O1 framed byte 0x%02X: [%s]", address, frame)

	if err := d.sendFrame(ctx, frame); err != nil {
		d.restore()
		return err
	}
	if err := d.SetLineState(Idle); err != nil {
		d.restore()
		return err
	}
	if err := d.SetFormat(OperatingFormat); err != nil {
		d.restore()
		return err
	}
	return nil
}

// sendFrame holds each symbol until its deadline relative to the first
// symbol, so sleep overshoot does not add up over the frame
func (d *Device) sendFrame(ctx context.Context, frame BitFrame) error {
	start := d.clk.Now()
	for i, bit := range frame {
		if err := ctx.Err(); err != nil {
			return newError(OpSlowInit, err)
		}
		if err := d.SetLineState(bit.LineState()); err != nil {
			return err
		}
		d.cfg.debugf("bit %d: %d (%s)", i, bit, bit.LineState())
		if d.cfg.OnBit != nil {
			d.cfg.OnBit(i, bit)
		}
		deadline := start.Add(BitDuration * time.Duration(i+1))
		select {
		case <-ctx.Done():
			return newError(OpSlowInit, ctx.Err())
		case <-d.clk.After(deadline.Sub(d.clk.Now())):
		}
	}
	return nil
}

func (d *Device) restore() {
	if d.tr == nil {
		return
	}
	if err := d.tr.SetBreak(false); err != nil {
		d.cfg.OnMessage("failed to release line after aborted slow init: " + err.Error())
	} else {
		d.state = Idle
	}
	if err := d.tr.SetLineFormat(OperatingFormat); err != nil {
		d.cfg.OnMessage("failed to restore " + OperatingFormat.String() + " after aborted slow init: " + err.Error())
		return
	}
	d.format = OperatingFormat
}
