package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const flagBuffer = "buffer"

func init() {
	sendCmd.Flags().Int(flagBuffer, 256, "read buffer size")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <hex bytes>",
	Short: "write raw bytes and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := parseHex(args)
		if err != nil {
			return err
		}
		size, _ := cmd.Flags().GetInt(flagBuffer)

		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}
		dev, err := openDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer dev.Close()

		n, err := dev.Write(payload)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, ">> %s (%d bytes)\n", hexdump(payload[:n]), n)

		resp, err := dev.Read(size)
		if err != nil {
			return err
		}
		if len(resp) == 0 {
			fmt.Fprintln(out, "no data (timeout)")
			return nil
		}
		fmt.Fprintln(out, "<<", hexdump(resp))
		return nil
	},
}

// parseHex accepts "82 41 F1", "8241F1" or "0x82 0x41"
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	return b, nil
}
