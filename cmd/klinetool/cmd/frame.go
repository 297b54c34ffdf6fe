package cmd

import (
	"fmt"

	"github.com/roffe/kline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(frameCmd)
}

var frameCmd = &cobra.Command{
	Use:   "frame <address>",
	Short: "print the 7O1 bit frame sent for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		f := kline.Encode(addr)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "address 0x%02X %s, %v at 5 baud\n", addr, kline.InitFormat, f.Duration())
		if addr&0x80 != 0 {
			fmt.Fprintln(out, "bit 7 is not transmitted")
		}
		fmt.Fprintln(out, formatFrame(f))
		return nil
	},
}
