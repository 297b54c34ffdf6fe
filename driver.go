package kline

import (
	"fmt"
	"sort"
	"strings"
)

// DriverInfo describes a transport backend
type DriverInfo struct {
	Name        string
	Description string
	// RequiresPort is set when the driver addresses a device node rather
	// than a USB vendor/product id
	RequiresPort bool
	New          func(*Config) (Transport, error)
}

func (d *DriverInfo) String() string {
	return fmt.Sprintf("%s | %s, requires port: %v", d.Name, d.Description, d.RequiresPort)
}

var driverMap = make(map[string]*DriverInfo)

// preferred order when no driver is configured
var defaultDrivers = []string{"ftdi", "tty"}

func RegisterDriver(driver *DriverInfo) error {
	if _, found := driverMap[driver.Name]; !found {
		driverMap[driver.Name] = driver
		return nil
	}
	return fmt.Errorf("driver %s already registered", driver.Name)
}

func lookupDriver(name string) (*DriverInfo, error) {
	if name == "" {
		name = DefaultDriver()
	}
	if driver, found := driverMap[name]; found {
		return driver, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDriver, name)
}

// DefaultDriver returns the first registered hardware driver, or "" if
// this build has none
func DefaultDriver() string {
	for _, name := range defaultDrivers {
		if _, found := driverMap[name]; found {
			return name
		}
	}
	return ""
}

func ListDriverNames() []string {
	var out []string
	for name := range driverMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListDrivers() []DriverInfo {
	var out []DriverInfo
	for _, name := range ListDriverNames() {
		out = append(out, *driverMap[name])
	}
	return out
}
