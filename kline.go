package kline

import (
	"fmt"
	"time"
)

const (
	// DefaultVID and DefaultPID select an FTDI FT232R USB serial bridge
	DefaultVID uint16 = 0x0403
	DefaultPID uint16 = 0x6001

	// BitDuration is the hold time of one symbol at 5 baud
	BitDuration = 200 * time.Millisecond
)

type Parity byte

const (
	NoParity Parity = iota
	OddParity
)

func (p Parity) String() string {
	switch p {
	case NoParity:
		return "N"
	case OddParity:
		return "O"
	default:
		return "?"
	}
}

// LineFormat is the character framing of the transceiver
type LineFormat struct {
	DataBits int
	Parity   Parity
	StopBits int
}

var (
	// OperatingFormat is used for ordinary communication after init
	OperatingFormat = LineFormat{DataBits: 8, Parity: NoParity, StopBits: 1}
	// InitFormat is held while the address byte is bit-banged
	InitFormat = LineFormat{DataBits: 7, Parity: OddParity, StopBits: 1}
)

func (f LineFormat) String() string {
	return fmt.Sprintf("%d%s%d", f.DataBits, f.Parity, f.StopBits)
}

// Valid reports whether the format is one the transceivers can be asked for
func (f LineFormat) Valid() bool {
	if f.DataBits != 7 && f.DataBits != 8 {
		return false
	}
	if f.Parity != NoParity && f.Parity != OddParity {
		return false
	}
	return f.StopBits == 1
}

// LineState is the condition of the transmit line
type LineState bool

const (
	// Idle releases the line, it floats high
	Idle LineState = false
	// Active forces the line low (break)
	Active LineState = true
)

func (s LineState) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Transport is the transceiver a Device drives. Read must return (0, nil)
// when the read timeout expires without data.
type Transport interface {
	Reset() error
	SetBaudRate(baud int) error
	SetLineFormat(LineFormat) error
	SetTimeouts(read, write time.Duration) error
	SetBreak(on bool) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}
