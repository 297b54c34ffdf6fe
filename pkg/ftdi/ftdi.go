// Package ftdi binds libftdi (Linux, build tag ftdi) and the D2XX driver
// (Windows) far enough to run a K-line transceiver: open by USB id, line
// properties, break and raw I/O.
package ftdi

import (
	"errors"
	"time"
)

type FlowControl uint16

const (
	DISABLED FlowControl = 0x0000
	RTS_CTS  FlowControl = 0x0100
	DTR_DSR  FlowControl = 0x0200
	XON_XOFF FlowControl = 0x0400
)

type LineProperties struct {
	Bits     BitsPerWord
	StopBits StopBits
	Parity   Parity
}

type BitsPerWord byte
type StopBits byte
type Parity byte

// The values are shared by libftdi and FT_SetDataCharacteristics
const (
	BITS_8 BitsPerWord = 8
	BITS_7 BitsPerWord = 7
	STOP_1 StopBits    = 0
	STOP_2 StopBits    = 2
	NONE   Parity      = 0
	ODD    Parity      = 1
	EVEN   Parity      = 2
	MARK   Parity      = 3
	SPACE  Parity      = 4
)

type PurgeFlag uint8

const (
	FT_PURGE_RX   PurgeFlag = 0x01
	FT_PURGE_TX   PurgeFlag = 0x02
	FT_PURGE_BOTH PurgeFlag = FT_PURGE_RX | FT_PURGE_TX
)

// readPollInterval is how often an empty read is retried until the read
// timeout expires
const readPollInterval = 2 * time.Millisecond

// FT_STATUS (DWORD)
const (
	FT_OK                          = 0
	FT_INVALID_HANDLE              = 1
	FT_DEVICE_NOT_FOUND            = 2
	FT_DEVICE_NOT_OPENED           = 3
	FT_IO_ERROR                    = 4
	FT_INSUFFICIENT_RESOURCES      = 5
	FT_INVALID_PARAMETER           = 6
	FT_INVALID_BAUD_RATE           = 7
	FT_DEVICE_NOT_OPENED_FOR_ERASE = 8
	FT_DEVICE_NOT_OPENED_FOR_WRITE = 9
	FT_FAILED_TO_WRITE_DEVICE      = 10
	FT_EEPROM_READ_FAILED          = 11
	FT_EEPROM_WRITE_FAILED         = 12
	FT_EEPROM_ERASE_FAILED         = 13
	FT_EEPROM_NOT_PRESENT          = 14
	FT_EEPROM_NOT_PROGRAMMED       = 15
	FT_INVALID_ARGS                = 16
	FT_NOT_SUPPORTED               = 17
	FT_OTHER_ERROR                 = 18
)

var (
	ErrInvalidHandle           = errors.New("FTDI :: Invalid device handle")
	ErrDeviceNotFound          = errors.New("FTDI :: Device not found")
	ErrDeviceNotOpened         = errors.New("FTDI :: Device not opened")
	ErrIO                      = errors.New("FTDI :: IO failed")
	ErrInsufficientResources   = errors.New("FTDI :: Insufficient resources")
	ErrInvalidParameter        = errors.New("FTDI :: Invalid parameter")
	ErrInvalidBaudRate         = errors.New("FTDI :: Invalid baud rate")
	ErrDeviceNotOpenedForErase = errors.New("FTDI :: Device not opened for erase")
	ErrDeviceNotOpenedForWrite = errors.New("FTDI :: Device not opened for write")
	ErrFailedToWriteDevice     = errors.New("FTDI :: Failed to write device")
	ErrEReadFailed             = errors.New("FTDI :: EEPROM read failed")
	ErrEWriteFailed            = errors.New("FTDI :: EEPROM write failed")
	ErrEEraseFailed            = errors.New("FTDI :: EEPROM erase failed")
	ErrENotPresent             = errors.New("FTDI :: EEPROM not present")
	ErrENotProgrammed          = errors.New("FTDI :: EEPROM not programmed")
	ErrInvalidArgs             = errors.New("FTDI :: Invalid arguments")
	ErrNotSupported            = errors.New("FTDI :: Device not supported")
	ErrOther                   = errors.New("FTDI :: Unknown FTDI error")
	ErrClosed                  = errors.New("FTDI :: Device already closed")
)

var errorList = map[uintptr]error{
	FT_INVALID_HANDLE:              ErrInvalidHandle,
	FT_DEVICE_NOT_FOUND:            ErrDeviceNotFound,
	FT_DEVICE_NOT_OPENED:           ErrDeviceNotOpened,
	FT_IO_ERROR:                    ErrIO,
	FT_INSUFFICIENT_RESOURCES:      ErrInsufficientResources,
	FT_INVALID_PARAMETER:           ErrInvalidParameter,
	FT_INVALID_BAUD_RATE:           ErrInvalidBaudRate,
	FT_DEVICE_NOT_OPENED_FOR_ERASE: ErrDeviceNotOpenedForErase,
	FT_DEVICE_NOT_OPENED_FOR_WRITE: ErrDeviceNotOpenedForWrite,
	FT_FAILED_TO_WRITE_DEVICE:      ErrFailedToWriteDevice,
	FT_EEPROM_READ_FAILED:          ErrEReadFailed,
	FT_EEPROM_WRITE_FAILED:         ErrEWriteFailed,
	FT_EEPROM_ERASE_FAILED:         ErrEEraseFailed,
	FT_EEPROM_NOT_PRESENT:          ErrENotPresent,
	FT_EEPROM_NOT_PROGRAMMED:       ErrENotProgrammed,
	FT_INVALID_ARGS:                ErrInvalidArgs,
	FT_NOT_SUPPORTED:               ErrNotSupported,
	FT_OTHER_ERROR:                 ErrOther,
}

func ftdiError(e uintptr) error {
	if err, ok := errorList[e]; ok {
		return err
	}
	return ErrOther
}

// USBID packs a vendor/product pair the way D2XX reports device ids
func USBID(vid, pid uint16) uint64 {
	return uint64(vid)<<16 | uint64(pid)
}

// readUntil retries read until it returns data, an error or the timeout has
// passed. A zero timeout makes a single attempt.
func readUntil(timeout time.Duration, read func() (int, error)) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		n, err := read()
		if err != nil || n > 0 {
			return n, err
		}
		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(readPollInterval)
	}
}
