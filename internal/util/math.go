package util

import (
	"strconv"
	"strings"
)

// FormatCount renders a counter the way dashboards show it: 950, 12.5K, 1.2M.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return trimDecimal(float64(n)/1_000_000_000) + "B"
	case n >= 1_000_000:
		return trimDecimal(float64(n)/1_000_000) + "M"
	case n >= 1_000:
		return trimDecimal(float64(n)/1_000) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func trimDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// Average returns the integer mean of values, 0 for an empty slice.
func Average(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return sum / int64(len(values))
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
