package cmd

import (
	"fmt"

	"github.com/roffe/kline/pkg/tty"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := tty.List()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return fmt.Errorf("no serial ports found")
		}
		out := cmd.OutOrStdout()
		for _, port := range ports {
			fmt.Fprintf(out, "port: %s\n", port.Name)
			if port.IsUSB {
				fmt.Fprintf(out, "   USB ID      %s:%s\n", port.VID, port.PID)
				fmt.Fprintf(out, "   USB serial  %s\n", port.SerialNumber)
			}
		}
		return nil
	},
}
