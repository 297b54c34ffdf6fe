package kline

import (
	"errors"
	"testing"

	"github.com/roffe/kline/pkg/tty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTYParity(t *testing.T) {
	p, err := ttyParity(OperatingFormat)
	require.NoError(t, err)
	assert.Equal(t, tty.ParityNone, p)

	p, err = ttyParity(InitFormat)
	require.NoError(t, err)
	assert.Equal(t, tty.ParityOdd, p)

	_, err = ttyParity(LineFormat{DataBits: 8, Parity: NoParity, StopBits: 2})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestResolvePortExplicit(t *testing.T) {
	cfg := &Config{Port: "/dev/ttyUSB3"}
	cfg.setDefaults()
	name, err := resolvePort(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", name)
}

func TestTTYDriverRegistered(t *testing.T) {
	assert.Contains(t, ListDriverNames(), "tty")
	assert.NotEmpty(t, DefaultDriver())
}
