package utils

import (
	"fmt"
	"strconv"
	"time"
)

// FormatNumber formats a number with K/M/B suffixes.
func FormatNumber(n uint64) string {
	switch {
	case n < 1_000:
		return strconv.FormatUint(n, 10)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	default:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	}
}

// FormatDuration converts a duration to its largest whole unit, such as
// "3 hours". Anything below a minute reads "moments".
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "moments"
	case hours < 1:
		return plural(minutes, "minute")
	case days < 1:
		return plural(hours, "hour")
	default:
		return plural(days, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
