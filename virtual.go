package kline

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

func init() {
	if err := RegisterDriver(&DriverInfo{
		Name:        "virtual",
		Description: "in memory transceiver, records every call",
		New: func(cfg *Config) (Transport, error) {
			return NewVirtual(), nil
		},
	}); err != nil {
		panic(err)
	}
}

// VirtualCall is one recorded transport call
type VirtualCall struct {
	At     time.Time
	Method string
	Arg    interface{}
}

func (c VirtualCall) String() string {
	return fmt.Sprintf("%s %s(%v)", c.At.Format("15:04:05.000"), c.Method, c.Arg)
}

// Virtual is a Transport that records calls, serves queued read data and
// fails on demand
type Virtual struct {
	// Now stamps recorded calls, defaults to time.Now
	Now func() time.Time

	mu      sync.Mutex
	calls   []VirtualCall
	fail    map[string]error
	rx      bytes.Buffer
	tx      bytes.Buffer
	format  LineFormat
	brk     bool
	baud    int
	timeout time.Duration
	closed  bool
}

func NewVirtual() *Virtual {
	return &Virtual{
		Now:  time.Now,
		fail: make(map[string]error),
	}
}

// Fail makes every following call to method return err, a nil err clears it
func (v *Virtual) Fail(method string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.fail, method)
		return
	}
	v.fail[method] = err
}

// Feed queues bytes to be returned by Read
func (v *Virtual) Feed(p []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rx.Write(p)
}

func (v *Virtual) Calls() []VirtualCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]VirtualCall, len(v.calls))
	copy(out, v.calls)
	return out
}

// CallsTo filters the recorded calls by method name
func (v *Virtual) CallsTo(method string) []VirtualCall {
	var out []VirtualCall
	for _, c := range v.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Written returns everything accepted by Write
func (v *Virtual) Written() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.tx.Bytes()...)
}

func (v *Virtual) Format() LineFormat {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.format
}

func (v *Virtual) Break() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.brk
}

func (v *Virtual) BaudRate() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.baud
}

func (v *Virtual) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// record must be called with mu held
func (v *Virtual) record(method string, arg interface{}) error {
	v.calls = append(v.calls, VirtualCall{At: v.Now(), Method: method, Arg: arg})
	return v.fail[method]
}

func (v *Virtual) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("Reset", nil); err != nil {
		return err
	}
	v.tx.Reset()
	return nil
}

func (v *Virtual) SetBaudRate(baud int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("SetBaudRate", baud); err != nil {
		return err
	}
	v.baud = baud
	return nil
}

func (v *Virtual) SetLineFormat(f LineFormat) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("SetLineFormat", f); err != nil {
		return err
	}
	v.format = f
	return nil
}

func (v *Virtual) SetTimeouts(read, write time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("SetTimeouts", read); err != nil {
		return err
	}
	v.timeout = read
	return nil
}

func (v *Virtual) SetBreak(on bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("SetBreak", on); err != nil {
		return err
	}
	v.brk = on
	return nil
}

// Read never blocks, an empty queue behaves like an expired read timeout
func (v *Virtual) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("Read", len(p)); err != nil {
		return 0, err
	}
	if v.rx.Len() == 0 {
		return 0, nil
	}
	return v.rx.Read(p)
}

func (v *Virtual) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("Write", len(p)); err != nil {
		return 0, err
	}
	return v.tx.Write(p)
}

func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record("Close", nil); err != nil {
		return err
	}
	v.closed = true
	return nil
}
