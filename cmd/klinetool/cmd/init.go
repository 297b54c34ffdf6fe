package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/roffe/kline"
	"github.com/roffe/kline/pkg/bar"
	"github.com/spf13/cobra"
)

const flagRead = "read"

func init() {
	initCmd.Flags().IntP(flagRead, "r", 3, "bytes to read after init, 0 = none")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <address>",
	Short: "send the 5 baud slow init to an ECU address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt(flagRead)

		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}
		pb := bar.New(kline.FrameLength, fmt.Sprintf("5Bd 0x%02X", addr))
		cfg.OnBit = func(index int, bit kline.Bit) {
			pb.Add(1)
		}

		dev, err := openDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer dev.Close()

		start := time.Now()
		if err := dev.SlowInit(cmd.Context(), addr); err != nil {
			pb.Clear()
			if dev.Format() != kline.OperatingFormat {
				log.Printf("device left in %s", dev.Format())
			}
			return err
		}
		pb.Finish()
		fmt.Fprintln(cmd.OutOrStdout())
		log.Println("slow init took", time.Since(start).String())

		if n <= 0 {
			return nil
		}
		resp, err := dev.Read(n)
		if err != nil {
			return err
		}
		if len(resp) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no data (timeout)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "<<", hexdump(resp))
		return nil
	},
}
