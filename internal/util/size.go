package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidSize = errors.New("invalid size")

var sizeUnits = []struct {
	suffix     string
	multiplier uint64
}{
	// longest suffixes first so "KB" is not read as "B"
	{"KIB", 1 << 10},
	{"MIB", 1 << 20},
	{"GIB", 1 << 30},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
	{"B", 1},
}

// ParseSize reads a byte count such as "1500", "64KB", "1.5 MB" or "2G".
// Units are binary, matching FormatSize. Fractions are allowed only with a
// unit and are rounded down to whole bytes.
func ParseSize(s string) (uint64, error) {
	str := strings.ToUpper(strings.TrimSpace(s))
	if str == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}

	multiplier := uint64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(str, u.suffix) {
			multiplier = u.multiplier
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			break
		}
	}
	if str == "" {
		return 0, fmt.Errorf("%w: %q has no number", ErrInvalidSize, s)
	}

	if n, err := strconv.ParseUint(str, 10, 64); err == nil {
		if multiplier > 1 && n > math.MaxUint64/multiplier {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
		}
		return n * multiplier, nil
	}

	if multiplier == 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	total := f * float64(multiplier)
	if total >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return uint64(total), nil
}
