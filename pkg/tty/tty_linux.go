package tty

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrClosed       = errors.New("port already closed")
	ErrWriteTimeout = errors.New("write timeout")
)

type Port struct {
	fd           int
	name         string
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Open opens name exclusively in raw 9600 8N1 mode
func Open(name string) (*Port, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}
	p := &Port{fd: fd, name: name}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to lock %q: %w", name, err)
	}
	t, err := p.termios()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	makeRaw(t)
	setBaudRate(t, 9600)
	if err := setLineProperties(t, 8, ParityNone, 1); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := p.setTermios(t); err != nil {
		unix.Close(fd)
		return nil, err
	}
	// fd stays non-blocking, Read and Write wait in poll
	return p, nil
}

func (p *Port) Name() string {
	return p.name
}

// Base is the device node without /dev, as used in sysfs
func (p *Port) Base() string {
	return filepath.Base(p.name)
}

func (p *Port) termios() (*unix.Termios, error) {
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS2)
	if err != nil {
		return nil, fmt.Errorf("tcgets2: %w", err)
	}
	return t, nil
}

func (p *Port) setTermios(t *unix.Termios) error {
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS2, t); err != nil {
		return fmt.Errorf("tcsets2: %w", err)
	}
	return nil
}

func (p *Port) update(fn func(*unix.Termios) error) error {
	if p.fd < 0 {
		return ErrClosed
	}
	t, err := p.termios()
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	return p.setTermios(t)
}

// SetBaudRate accepts any rate the UART can divide down to, 10400 included
func (p *Port) SetBaudRate(baud int) error {
	if baud <= 0 {
		return fmt.Errorf("invalid baudrate %d", baud)
	}
	return p.update(func(t *unix.Termios) error {
		setBaudRate(t, baud)
		return nil
	})
}

func (p *Port) SetLineProperties(dataBits int, parity Parity, stopBits int) error {
	return p.update(func(t *unix.Termios) error {
		return setLineProperties(t, dataBits, parity, stopBits)
	})
}

func (p *Port) SetReadTimeout(d time.Duration) {
	p.readTimeout = d
}

// SetWriteTimeout bounds how long Write waits for the kernel to accept
// data, zero waits forever
func (p *Port) SetWriteTimeout(d time.Duration) {
	p.writeTimeout = d
}

// SetBreak holds the transmit line low until called with false
func (p *Port) SetBreak(on bool) error {
	if p.fd < 0 {
		return ErrClosed
	}
	var err error
	if on {
		err = unix.IoctlSetInt(p.fd, unix.TIOCSBRK, 0)
	} else {
		err = unix.IoctlSetInt(p.fd, unix.TIOCCBRK, 0)
	}
	if err != nil {
		return fmt.Errorf("break %v: %w", on, err)
	}
	return nil
}

// Flush discards both the input and the output queue
func (p *Port) Flush() error {
	if p.fd < 0 {
		return ErrClosed
	}
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return fmt.Errorf("tcflush: %w", err)
	}
	return nil
}

// Read waits up to the read timeout for data, a timeout returns 0 and no
// error
func (p *Port) Read(b []byte) (int, error) {
	if p.fd < 0 {
		return 0, ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	deadline := time.Now().Add(p.readTimeout)
	for {
		ready, err := p.poll(unix.POLLIN, deadline)
		if err != nil {
			return 0, err
		}
		if !ready {
			return 0, nil
		}
		n, err := unix.Read(p.fd, b)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Write returns ErrWriteTimeout and the number of bytes accepted so far if
// the output queue does not drain within the write timeout
func (p *Port) Write(b []byte) (int, error) {
	if p.fd < 0 {
		return 0, ErrClosed
	}
	var deadline time.Time
	if p.writeTimeout > 0 {
		deadline = time.Now().Add(p.writeTimeout)
	}
	var written int
	for written < len(b) {
		ready, err := p.poll(unix.POLLOUT, deadline)
		if err != nil {
			return written, err
		}
		if !ready {
			return written, fmt.Errorf("%w after %d of %d bytes", ErrWriteTimeout, written, len(b))
		}
		n, err := unix.Write(p.fd, b[written:])
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// poll waits for events until deadline, a zero deadline waits forever. It
// returns false when the deadline passed first.
func (p *Port) poll(events int16, deadline time.Time) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: events}}
	for {
		wait := -1
		if !deadline.IsZero() {
			wait = int(time.Until(deadline).Milliseconds())
			if wait < 0 {
				wait = 0
			}
		}
		n, err := unix.Poll(fds, wait)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return false, fmt.Errorf("port %s disconnected", p.name)
		}
		return true, nil
	}
}

func (p *Port) Close() error {
	if p.fd < 0 {
		return nil
	}
	fd := p.fd
	p.fd = -1
	return unix.Close(fd)
}

// makeRaw is cfmakeraw plus CLOCAL|CREAD, reads return immediately
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CRTSCTS
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
}

func setBaudRate(t *unix.Termios, baud int) {
	t.Cflag &^= unix.CBAUD
	t.Cflag |= unix.BOTHER
	t.Ispeed = uint32(baud)
	t.Ospeed = uint32(baud)
}

func setLineProperties(t *unix.Termios, dataBits int, parity Parity, stopBits int) error {
	t.Cflag &^= unix.CSIZE
	switch dataBits {
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		return fmt.Errorf("unsupported data bits %d", dataBits)
	}

	t.Cflag &^= unix.PARENB | unix.PARODD
	t.Iflag &^= unix.INPCK
	switch parity {
	case ParityNone:
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
		t.Iflag |= unix.INPCK
	case ParityEven:
		t.Cflag |= unix.PARENB
		t.Iflag |= unix.INPCK
	default:
		return fmt.Errorf("unsupported parity %d", parity)
	}

	switch stopBits {
	case 1:
		t.Cflag &^= unix.CSTOPB
	case 2:
		t.Cflag |= unix.CSTOPB
	default:
		return fmt.Errorf("unsupported stop bits %d", stopBits)
	}
	return nil
}
