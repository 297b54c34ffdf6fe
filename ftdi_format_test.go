package kline

import (
	"errors"
	"testing"

	"github.com/roffe/kline/pkg/ftdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTDILineProperties(t *testing.T) {
	props, err := ftdiLineProperties(OperatingFormat)
	require.NoError(t, err)
	assert.Equal(t, ftdi.LineProperties{Bits: ftdi.BITS_8, StopBits: ftdi.STOP_1, Parity: ftdi.NONE}, props)

	props, err = ftdiLineProperties(InitFormat)
	require.NoError(t, err)
	assert.Equal(t, ftdi.LineProperties{Bits: ftdi.BITS_7, StopBits: ftdi.STOP_1, Parity: ftdi.ODD}, props)

	_, err = ftdiLineProperties(LineFormat{DataBits: 5, StopBits: 1})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
