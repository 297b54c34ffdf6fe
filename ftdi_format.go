package kline

import (
	"fmt"

	"github.com/roffe/kline/pkg/ftdi"
)

func ftdiLineProperties(f LineFormat) (ftdi.LineProperties, error) {
	if !f.Valid() {
		return ftdi.LineProperties{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	props := ftdi.LineProperties{
		Bits:     ftdi.BITS_8,
		StopBits: ftdi.STOP_1,
		Parity:   ftdi.NONE,
	}
	if f.DataBits == 7 {
		props.Bits = ftdi.BITS_7
	}
	if f.Parity == OddParity {
		props.Parity = ftdi.ODD
	}
	return props, nil
}
