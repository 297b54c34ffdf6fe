package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roffe/kline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "hex dump everything received until ctrl-c",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}
		dev, err := openDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer dev.Close()

		chunks := make(chan []byte, 16)
		errg, ctx := errgroup.WithContext(cmd.Context())
		errg.Go(func() error {
			return readLoop(ctx, dev, chunks)
		})
		errg.Go(func() error {
			out := cmd.OutOrStdout()
			for chunk := range chunks {
				fmt.Fprintf(out, "%s << %s\n", time.Now().Format("15:04:05.000"), hexdump(chunk))
			}
			return nil
		})
		if err := errg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// readLoop is the only user of dev until ctx is done
func readLoop(ctx context.Context, dev *kline.Device, chunks chan<- []byte) error {
	defer close(chunks)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b, err := dev.Read(256)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			continue
		}
		select {
		case chunks <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
