package cmd

import (
	"fmt"

	"github.com/roffe/kline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(driversCmd)
}

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "list transport drivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		def := kline.DefaultDriver()
		for _, d := range kline.ListDrivers() {
			marker := " "
			if d.Name == def {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, d.String())
		}
	},
}
