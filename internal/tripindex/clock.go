package tripindex

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts a service-day clock string ("HH:MM" or "HH:MM:SS") into minutes after the
// start of the service day. Hours past 23 are kept as-is, so "25:10" is 1510 rather than 70.
// Seconds are truncated.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in clock value %q", value)
	}
	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minutes in clock value %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in clock value %q", value)
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("invalid seconds in clock value %q", value)
		}
	}

	return hours*60 + minutes, nil
}

// FormatClock renders minutes as "HH:MM" without wrapping past midnight.
func FormatClock(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}
