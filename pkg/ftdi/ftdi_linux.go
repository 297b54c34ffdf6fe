//go:build linux && ftdi

package ftdi

import (
	"errors"
	"sync"
	"time"
)

// If installed on OSX using 'brew'
// ;;#cgo CFLAGS: -I/usr/local/Cellar/libftdi/1.1/include/libftdi1/
// ;;#cgo LDFLAGS: -lftdi1 -L/usr/local/Cellar/libftdi/1.1/lib/

// #cgo pkg-config: libftdi1
// #include <ftdi.h>
import "C"

type Device struct {
	ctx         *C.struct_ftdi_context
	open        bool
	readTimeout time.Duration
	lock        sync.Mutex
}

// OpenUSB opens the first device matching vid:pid
func OpenUSB(vid, pid uint16) (*Device, error) {
	ctx := C.ftdi_new()
	if ctx == nil {
		return nil, errors.New("failed to create FTDI context")
	}
	if ret := C.ftdi_usb_open(ctx, C.int(vid), C.int(pid)); ret < 0 {
		err := getErr(ctx)
		C.ftdi_free(ctx)
		return nil, err
	}
	return &Device{ctx: ctx, open: true}, nil
}

func (d *Device) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.open {
		return nil
	}
	defer C.ftdi_free(d.ctx)
	d.open = false
	if ret := C.ftdi_usb_close(d.ctx); ret != 0 {
		return getErr(d.ctx)
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
		d.lock.Lock()
		defer d.lock.Unlock()
		if !d.open {
			return 0, ErrClosed
		}
		ret := C.ftdi_read_data(d.ctx, (*C.uchar)(&p[0]), C.int(len(p)))
		if ret < 0 {
			return 0, getErr(d.ctx)
		}
		return int(ret), nil
	})
}

func (d *Device) Write(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.open {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	ret := C.ftdi_write_data(d.ctx, (*C.uchar)(&p[0]), C.int(len(p)))
	if ret < 0 {
		return 0, getErr(d.ctx)
	}
	return int(ret), nil
}

func (d *Device) SetBaudRate(baud uint) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_set_baudrate(d.ctx, C.int(baud)); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

func (d *Device) SetFlowControl(f FlowControl) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_setflowctrl(d.ctx, C.int(f)); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

// SetLatency sets the latency timer in milliseconds, 1 to 255
func (d *Device) SetLatency(latency int) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_set_latency_timer(d.ctx, C.uchar(latency)); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

func (d *Device) SetLineProperty(props LineProperties) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_set_line_property(d.ctx,
		uint32(props.Bits),
		uint32(props.StopBits),
		uint32(props.Parity)); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

// SetTimeout sets the USB transfer timeouts, the read timeout also bounds
// how long Read waits for data
func (d *Device) SetTimeout(readTimeout, writeTimeout time.Duration) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.ctx.usb_read_timeout = C.int(readTimeout.Milliseconds())
	d.ctx.usb_write_timeout = C.int(writeTimeout.Milliseconds())
	d.readTimeout = readTimeout
	return nil
}

func (d *Device) Reset() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_usb_reset(d.ctx); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

func (d *Device) Purge(flag PurgeFlag) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	var ret C.int
	switch flag {
	case FT_PURGE_RX:
		ret = C.ftdi_usb_purge_rx_buffer(d.ctx)
	case FT_PURGE_TX:
		ret = C.ftdi_usb_purge_tx_buffer(d.ctx)
	default:
		ret = C.ftdi_usb_purge_buffers(d.ctx)
	}
	if ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

// libftdi sets break together with the line properties
func (d *Device) SetBreakOn(props LineProperties) error {
	return d.setLineProperty2(props, C.BREAK_ON)
}

func (d *Device) SetBreakOff(props LineProperties) error {
	return d.setLineProperty2(props, C.BREAK_OFF)
}

func (d *Device) setLineProperty2(props LineProperties, brk uint32) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ret := C.ftdi_set_line_property2(d.ctx,
		uint32(props.Bits),
		uint32(props.StopBits),
		uint32(props.Parity),
		brk); ret < 0 {
		return getErr(d.ctx)
	}
	return nil
}

func getErr(ctx *C.struct_ftdi_context) error {
	return errors.New(C.GoString(C.ftdi_get_error_string(ctx)))
}
