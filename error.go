package kline

import (
	"errors"
	"fmt"
)

// Op names the device operation that failed
type Op string

const (
	OpOpen      Op = "open"
	OpReset     Op = "reset"
	OpBaudRate  Op = "baudrate"
	OpFormat    Op = "format"
	OpTimeout   Op = "timeout"
	OpWrite     Op = "write"
	OpRead      Op = "read"
	OpLineState Op = "linestate"
	OpSlowInit  Op = "slowinit"
)

var opPrefix = map[Op]string{
	OpOpen:      "unable to open device",
	OpReset:     "unable to reset device",
	OpBaudRate:  "unable to set baudrate",
	OpFormat:    "unable to set line properties",
	OpTimeout:   "unable to set timeouts",
	OpWrite:     "write failed",
	OpRead:      "read failed",
	OpLineState: "unable to set line state",
	OpSlowInit:  "slow init aborted",
}

var (
	ErrNotOpen           = errors.New("device not open")
	ErrAlreadyOpen       = errors.New("device already open")
	ErrUnsupportedFormat = errors.New("unsupported line format")
	ErrUnknownDriver     = errors.New("unknown driver")
)

// DeviceError is returned by every failing Device operation
type DeviceError struct {
	Op  Op
	Err error
}

func (e *DeviceError) Error() string {
	prefix, ok := opPrefix[e.Op]
	if !ok {
		prefix = string(e.Op)
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func newError(op Op, err error) error {
	return &DeviceError{Op: op, Err: err}
}

// IsOp reports whether err is a DeviceError raised by op
func IsOp(err error, op Op) bool {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Op == op
	}
	return false
}
