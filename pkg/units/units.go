package units

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
	TiB = 1 << 40
)

// ParseSize parses a byte count with an optional K/M/G/T suffix using
// binary multipliers, e.g. "5M" = 5 MiB, "512K", "2G", "1048576".
// Suffixes are case-insensitive; a trailing "B" or "iB" is accepted.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	s = strings.TrimSuffix(s, "IB")
	s = strings.TrimSuffix(s, "B")

	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = KiB, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = MiB, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = GiB, strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		mult, s = TiB, strings.TrimSuffix(s, "T")
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", orig, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %q", orig)
	}
	return int64(n * float64(mult)), nil
}

// FormatBytes renders a byte count in human-readable binary units
func FormatBytes(n int64) string {
	switch {
	case n >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(n)/TiB)
	case n >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(n)/GiB)
	case n >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(n)/MiB)
	case n >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(n)/KiB)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatRate renders a bytes-per-second rate
func FormatRate(bps float64) string {
	switch {
	case bps >= GiB:
		return fmt.Sprintf("%.2f GiB/s", bps/GiB)
	case bps >= MiB:
		return fmt.Sprintf("%.2f MiB/s", bps/MiB)
	case bps >= KiB:
		return fmt.Sprintf("%.2f KiB/s", bps/KiB)
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}
