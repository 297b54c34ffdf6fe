// Package tty drives a kernel serial device (ftdi_sio, cp210x, ch341 ...)
// through termios, including break on/off which the usual serial packages
// only offer as a timed pulse.
package tty

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

var ErrNoPort = errors.New("no matching serial port found")

// List returns all serial ports the system knows about
func List() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList()
}

// Find returns the names of all USB serial ports with the given vendor and
// product id
func Find(vid, pid uint16) ([]string, error) {
	ports, err := List()
	if err != nil {
		return nil, err
	}
	names := match(ports, vid, pid)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %04x:%04x", ErrNoPort, vid, pid)
	}
	return names, nil
}

func match(ports []*enumerator.PortDetails, vid, pid uint16) []string {
	wantVID := fmt.Sprintf("%04x", vid)
	wantPID := fmt.Sprintf("%04x", pid)
	var out []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if strings.EqualFold(port.VID, wantVID) && strings.EqualFold(port.PID, wantPID) {
			out = append(out, port.Name)
		}
	}
	return out
}
