package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/avast/retry-go"
	"github.com/manifoldco/promptui"
	"github.com/roffe/kline"
	"github.com/roffe/kline/pkg/tty"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "klinetool",
	Short:        "K-line 5 baud init tool",
	Long:         `Address an ECU with the ISO 9141-2 slow init through an FTDI or any kernel serial device`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagDriver   = "driver"
	flagPort     = "port"
	flagVID      = "vid"
	flagPID      = "pid"
	flagBaudrate = "baudrate"
	flagTimeout  = "timeout"
	flagDebug    = "debug"
	flagAttempts = "attempts"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagDriver, "a", kline.DefaultDriver(), "transport driver, see 'klinetool drivers'")
	pf.StringP(flagPort, "p", "", "device node for the tty driver, empty = search by VID:PID")
	pf.String(flagVID, fmt.Sprintf("0x%04x", kline.DefaultVID), "USB vendor id")
	pf.String(flagPID, fmt.Sprintf("0x%04x", kline.DefaultPID), "USB product id")
	pf.IntP(flagBaudrate, "b", 10400, "baudrate after init")
	pf.IntP(flagTimeout, "t", 500, "read/write timeout in ms")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Uint(flagAttempts, 3, "attempts to acquire the device")
}

func parseUSBID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q: %w", s, err)
	}
	return uint16(v), nil
}

func configFromFlags(cmd *cobra.Command) (*kline.Config, error) {
	pf := cmd.Flags()
	driver, _ := pf.GetString(flagDriver)
	port, _ := pf.GetString(flagPort)
	debug, _ := pf.GetBool(flagDebug)
	vidStr, _ := pf.GetString(flagVID)
	pidStr, _ := pf.GetString(flagPID)

	vid, err := parseUSBID(vidStr)
	if err != nil {
		return nil, err
	}
	pid, err := parseUSBID(pidStr)
	if err != nil {
		return nil, err
	}
	return &kline.Config{
		Driver: driver,
		Port:   port,
		VID:    vid,
		PID:    pid,
		Debug:  debug,
		OnMessage: func(msg string) {
			log.Println(msg)
		},
	}, nil
}

// selectPort asks which port to use when more than one matches VID:PID
func selectPort(cfg *kline.Config) error {
	if cfg.Driver != "tty" || cfg.Port != "" {
		return nil
	}
	names, err := tty.Find(cfg.VID, cfg.PID)
	if err != nil {
		return err
	}
	if len(names) == 1 {
		cfg.Port = names[0]
		return nil
	}
	prompt := promptui.Select{
		Label: "Select port",
		Items: names,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.Port = result
	return nil
}

// openDevice opens the configured device, retrying acquisition only
func openDevice(cmd *cobra.Command, cfg *kline.Config) (*kline.Device, error) {
	pf := cmd.Flags()
	baudrate, _ := pf.GetInt(flagBaudrate)
	timeout, _ := pf.GetInt(flagTimeout)
	attempts, _ := pf.GetUint(flagAttempts)
	if attempts < 1 {
		attempts = 1
	}

	if err := selectPort(cfg); err != nil {
		return nil, err
	}

	dev, err := kline.New(cfg)
	if err != nil {
		return nil, err
	}

	err = retry.Do(func() error {
		return dev.Open(baudrate, timeout)
	},
		retry.Context(cmd.Context()),
		retry.Attempts(attempts),
		retry.RetryIf(func(err error) bool {
			return kline.IsOp(err, kline.OpOpen)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("retry #%d: %v", n+1, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
