package kline

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
)

type Config struct {
	// Driver selects the transport backend, empty picks DefaultDriver
	Driver string
	// Port is an explicit device node for drivers that need one
	Port string
	VID  uint16
	PID  uint16
	// Debug traces every line state command through OnMessage
	Debug     bool
	OnMessage func(string)
	// OnBit is called after each frame symbol has been put on the line
	OnBit func(index int, bit Bit)
}

func (cfg *Config) setDefaults() {
	if cfg.VID == 0 {
		cfg.VID = DefaultVID
	}
	if cfg.PID == 0 {
		cfg.PID = DefaultPID
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(1)
			if ok {
				fmt.Printf("%s#%d %v\n", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
}

func (cfg *Config) debugf(format string, v ...interface{}) {
	if cfg.Debug {
		cfg.OnMessage(fmt.Sprintf(format, v...))
	}
}

// USBID renders the vendor/product pair as vvvv:pppp
func (cfg *Config) USBID() string {
	return fmt.Sprintf("%04x:%04x", cfg.VID, cfg.PID)
}
