package kline

import (
	"math/bits"
	"strings"
	"time"
)

type Bit uint8

// LineState maps a frame symbol onto the line, 0 pulls the line low
func (b Bit) LineState() LineState {
	if b == 0 {
		return Active
	}
	return Idle
}

// FrameLength is start + 7 data + parity + stop
const FrameLength = 10

// BitFrame is a 7O1 character as it appears on the wire, first symbol first
type BitFrame [FrameLength]Bit

// Encode frames the low 7 bits of b as start, data LSB first, odd parity and stop
func Encode(b byte) BitFrame {
	var f BitFrame
	f[0] = 0
	for i := 0; i < 7; i++ {
		f[i+1] = Bit((b >> i) & 0x01)
	}
	f[8] = OddParityBit(b)
	f[9] = 1
	return f
}

// OddParityBit returns the parity symbol that makes the number of ones in
// the 7 data bits plus parity odd
func OddParityBit(b byte) Bit {
	if bits.OnesCount8(b&0x7F)%2 == 0 {
		return 1
	}
	return 0
}

// Duration is the time the frame occupies on the line at 5 baud
func (f BitFrame) Duration() time.Duration {
	return time.Duration(len(f)) * BitDuration
}

func (f BitFrame) String() string {
	var out strings.Builder
	for i, b := range f {
		if i > 0 {
			out.WriteByte(' ')
		}
		out.WriteByte('0' + byte(b))
	}
	return out.String()
}
