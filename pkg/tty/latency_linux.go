package tty

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const usbSerialSysfs = "/sys/bus/usb-serial/devices"

// SetLatencyTimer sets how many ms ftdi_sio holds received bytes before
// passing them up, 1-255. Only ttyUSB nodes bound to ftdi_sio have one.
func (p *Port) SetLatencyTimer(ms int) error {
	if ms < 1 || ms > 255 {
		return fmt.Errorf("latency timer %dms out of range", ms)
	}
	if err := os.WriteFile(latencyTimerPath(p.Base()), []byte(strconv.Itoa(ms)), 0644); err != nil {
		return fmt.Errorf("%s latency timer: %w", p.Base(), err)
	}
	return nil
}

func latencyTimerPath(base string) string {
	return filepath.Join(usbSerialSysfs, base, "latency_timer")
}
