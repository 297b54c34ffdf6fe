package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/roffe/kline"
)

var (
	yellow = color.New(color.FgHiYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

var symbolNames = [kline.FrameLength]string{"start", "d0", "d1", "d2", "d3", "d4", "d5", "d6", "parity", "stop"}

func parseAddress(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return byte(v), nil
}

// formatFrame renders the frame as a header row of symbol names and a row of
// bits, 0 (line pulled low) in red
func formatFrame(f kline.BitFrame) string {
	var head, bits strings.Builder
	for i, b := range f {
		name := symbolNames[i]
		width := len(name) + 1
		head.WriteString(fmt.Sprintf("%-*s", width, name))
		cell := fmt.Sprintf("%-*d", width, b)
		if b == 0 {
			bits.WriteString(red("%s", cell))
		} else {
			bits.WriteString(green("%s", cell))
		}
	}
	return strings.TrimRight(head.String(), " ") + "\n" + strings.TrimRight(bits.String(), " ")
}

func hexdump(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return yellow("%s", strings.Join(parts, " "))
}
