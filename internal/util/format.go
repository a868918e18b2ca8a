package util

import (
	"fmt"
	"math"
)

func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	// Use integer arithmetic to avoid floating-point precision issues
	exp := int(math.Log(float64(size)) / math.Log(unit))
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}

	if exp >= len(units) {
		exp = len(units) - 1
	}

	div := int64(math.Pow(unit, float64(exp)))
	value := size / div

	// Special case: omit decimals for integer values
	if size%div == 0 {
		return fmt.Sprintf("%d %s", value, units[exp])
	}

	remainder := size % div
	decimal := (remainder * 1000) / div // three decimal places

	switch {
	case decimal%10 != 0:
		return fmt.Sprintf("%d.%03d %s", value, decimal, units[exp])
	case decimal%100 != 0:
		return fmt.Sprintf("%d.%02d %s", value, decimal/10, units[exp])
	default:
		return fmt.Sprintf("%d.%d %s", value, decimal/100, units[exp])
	}
}

// FormatBitRate renders a bits-per-second figure with decimal (SI) prefixes,
// the way link speeds are quoted.
func FormatBitRate(bps float64) string {
	units := []string{"bit/s", "Kbit/s", "Mbit/s", "Gbit/s", "Tbit/s"}
	if bps <= 0 || math.IsNaN(bps) || math.IsInf(bps, 0) {
		return "0 bit/s"
	}
	i := 0
	for bps >= 1000 && i < len(units)-1 {
		bps /= 1000
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", bps, units[i])
	}
	return fmt.Sprintf("%.2f %s", bps, units[i])
}

// FormatPercent renders a success rate with two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
