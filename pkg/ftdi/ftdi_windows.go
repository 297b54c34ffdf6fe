package ftdi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

var InitErr error

var (
	dllFuncs = map[string]**syscall.Proc{
		"FT_CreateDeviceInfoList":   &ftCreateDeviceInfoList,
		"FT_GetDeviceInfoDetail":    &ftGetDeviceInfoDetail,
		"FT_Open":                   &ftOpen,
		"FT_Close":                  &ftClose,
		"FT_Read":                   &ftRead,
		"FT_Write":                  &ftWrite,
		"FT_Purge":                  &ftPurge,
		"FT_SetBaudRate":            &ftSetBaudRate,
		"FT_SetFlowControl":         &ftSetFlowControl,
		"FT_SetLatencyTimer":        &ftSetLatency,
		"FT_SetDataCharacteristics": &ftSetLineProperty,
		"FT_SetTimeouts":            &ftSetTimeout,
		"FT_ResetDevice":            &ftResetDevice,
		"FT_SetBreakOn":             &ftSetBreakOn,
		"FT_SetBreakOff":            &ftSetBreakOff,
	}

	ftCreateDeviceInfoList *syscall.Proc
	ftGetDeviceInfoDetail  *syscall.Proc
	ftOpen                 *syscall.Proc
	ftClose                *syscall.Proc
	ftRead                 *syscall.Proc
	ftWrite                *syscall.Proc
	ftPurge                *syscall.Proc
	ftSetBaudRate          *syscall.Proc
	ftSetFlowControl       *syscall.Proc
	ftSetLatency           *syscall.Proc
	ftSetLineProperty      *syscall.Proc
	ftSetTimeout           *syscall.Proc
	ftResetDevice          *syscall.Proc
	ftSetBreakOn           *syscall.Proc
	ftSetBreakOff          *syscall.Proc
)

var (
	ErrInvalidDriver  = errors.New("unsupported FTDI DLL")
	ErrDriverNotFound = errors.New("FTDI driver not found in system directories")

	initOnce sync.Once
)

func Init() error {
	initOnce.Do(func() {
		d2xx, err := syscall.LoadDLL("ftd2xx.dll")
		if err != nil {
			InitErr = ErrDriverNotFound
			return
		}
		for procName, procPtr := range dllFuncs {
			proc, err := d2xx.FindProc(procName)
			if err != nil {
				InitErr = fmt.Errorf("FTDI driver missing function: %s", procName)
				return
			}
			*procPtr = proc
		}
	})
	return InitErr
}

func bytesToString(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n == -1 {
		n = len(b)
	}
	return string(b[:n])
}

var _ io.ReadWriteCloser = (*Device)(nil)

type Device struct {
	handle      uintptr
	readTimeout time.Duration
}

type DeviceInfo struct {
	Index        uint64
	Flags        uint64
	Dtype        uint64
	ID           uint64
	location     uint64
	SerialNumber string
	Description  string
	handle       uintptr
}

func GetDeviceList() ([]DeviceInfo, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	var n uint32
	r, _, _ := ftCreateDeviceInfoList.Call(uintptr(unsafe.Pointer(&n)))
	if r != FT_OK {
		return nil, ftdiError(r)
	}

	di := make([]DeviceInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		var d DeviceInfo
		var sn [16]byte
		var description [64]byte
		d.Index = uint64(i)
		r, _, _ = ftGetDeviceInfoDetail.Call(uintptr(i),
			uintptr(unsafe.Pointer(&(d.Flags))),
			uintptr(unsafe.Pointer(&d.Dtype)),
			uintptr(unsafe.Pointer(&d.ID)),
			uintptr(unsafe.Pointer(&d.location)),
			uintptr(unsafe.Pointer(&sn)),
			uintptr(unsafe.Pointer(&description)),
			uintptr(unsafe.Pointer(&d.handle)))
		if r != FT_OK {
			continue
		}
		d.SerialNumber = bytesToString(sn[:])
		d.Description = bytesToString(description[:])
		di = append(di, d)
	}
	return di, nil
}

// OpenUSB opens the first device matching vid:pid
func OpenUSB(vid, pid uint16) (*Device, error) {
	list, err := GetDeviceList()
	if err != nil {
		return nil, err
	}
	want := USBID(vid, pid)
	for _, di := range list {
		if di.ID&0xFFFFFFFF == want {
			return Open(di)
		}
	}
	return nil, fmt.Errorf("%w: %04x:%04x", ErrDeviceNotFound, vid, pid)
}

func Open(di DeviceInfo) (*Device, error) {
	var handle uintptr
	r, _, _ := ftOpen.Call(uintptr(di.Index), uintptr(unsafe.Pointer(&handle)))
	if r != FT_OK {
		return nil, ftdiError(r)
	}
	return &Device{handle: handle}, nil
}

func (d *Device) Close() error {
	r, _, _ := ftClose.Call(d.handle)
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

// Read returns once data is available or the read timeout has expired, a
// timeout is not an error
func (d *Device) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return readUntil(d.readTimeout, func() (int, error) {
		var bytesRead uint32
		r, _, _ := ftRead.Call(d.handle,
			uintptr(unsafe.Pointer(&p[0])),
			uintptr(uint32(len(p))),
			uintptr(unsafe.Pointer(&bytesRead)))
		if r != FT_OK {
			return int(bytesRead), ftdiError(r)
		}
		return int(bytesRead), nil
	})
}

func (d *Device) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var bytesWritten uint32
	r, _, _ := ftWrite.Call(d.handle,
		uintptr(unsafe.Pointer(&p[0])),
		uintptr(uint32(len(p))),
		uintptr(unsafe.Pointer(&bytesWritten)))
	if r != FT_OK {
		return int(bytesWritten), ftdiError(r)
	}
	return int(bytesWritten), nil
}

func (d *Device) SetBaudRate(baud uint) error {
	r, _, _ := ftSetBaudRate.Call(d.handle, uintptr(uint32(baud)))
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

func (d *Device) SetFlowControl(f FlowControl) error {
	r, _, _ := ftSetFlowControl.Call(d.handle,
		uintptr(uint16(f)),
		uintptr(0x11), // XON Character
		uintptr(0x13)) // XOFF Character
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

// Set latency in milliseconds. Valid between 2 and 255.
func (d *Device) SetLatency(latency int) error {
	r, _, _ := ftSetLatency.Call(d.handle, uintptr(byte(latency)))
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

func (d *Device) SetLineProperty(props LineProperties) error {
	r, _, _ := ftSetLineProperty.Call(d.handle,
		uintptr(byte(props.Bits)),
		uintptr(byte(props.StopBits)),
		uintptr(byte(props.Parity)))
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

func (d *Device) SetTimeout(readTimeout, writeTimeout time.Duration) error {
	r, _, _ := ftSetTimeout.Call(d.handle,
		uintptr(uint32(readTimeout.Milliseconds())),
		uintptr(uint32(writeTimeout.Milliseconds())))
	if r != FT_OK {
		return ftdiError(r)
	}
	d.readTimeout = readTimeout
	return nil
}

func (d *Device) Reset() error {
	r, _, _ := ftResetDevice.Call(d.handle)
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

func (d *Device) Purge(flag PurgeFlag) error {
	r, _, _ := ftPurge.Call(d.handle, uintptr(flag))
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

// D2XX has dedicated break calls, props is only used by libftdi
func (d *Device) SetBreakOn(props LineProperties) error {
	r, _, _ := ftSetBreakOn.Call(d.handle)
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}

func (d *Device) SetBreakOff(props LineProperties) error {
	r, _, _ := ftSetBreakOff.Call(d.handle)
	if r != FT_OK {
		return ftdiError(r)
	}
	return nil
}
