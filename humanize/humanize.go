// Package humanize formats sizes for terminal output.
package humanize

import (
	"fmt"

	"github.com/gokrazy/fatdisk/fat"
)

func scaled(n uint64, suffix string) string {
	switch {
	case n > (1024 * 1024):
		return fmt.Sprintf("%.f Mi%s", float64(n)/1024/1024, suffix)
	case n > 1024:
		return fmt.Sprintf("%.f Ki%s", float64(n)/1024, suffix)
	default:
		return fmt.Sprintf("%d %s", n, suffix)
	}
}

func BPS(bps uint64) string { return scaled(bps, "B/s") }

func Bytes(bytes uint64) string { return scaled(bytes, "B") }

// Blocks formats a number of image blocks along with their size.
func Blocks(n int) string {
	unit := "blocks"
	if n == 1 {
		unit = "block"
	}
	return fmt.Sprintf("%d %s (%s)", n, unit, Bytes(uint64(n)*fat.BlockSize))
}
