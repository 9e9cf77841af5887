package timefmt

import (
	"fmt"
	"math"
	"strings"
)

// FormatTime renders a duration given in seconds as MM:SS[.fraction].
// Minutes and whole seconds are zero-padded to two digits. The fractional
// seconds part is rounded half away from zero to at most precision digits
// and omitted when it is empty. Negative durations render as "00:00".
func FormatTime(seconds float64, precision int) string {
	if seconds < 0 {
		seconds = 0
	}

	minutes := int(seconds) / 60
	rem := seconds - float64(minutes*60)
	whole := int(rem)
	frac := rem - float64(whole)

	var digits string
	if precision > 0 && frac > 0 {
		scale := math.Pow10(precision)
		scaled := math.Round(frac * scale)
		if scaled >= scale {
			// fraction rounds up to the next whole second
			scaled = 0
			whole++
			if whole == 60 {
				whole = 0
				minutes++
			}
		}
		digits = strings.TrimRight(fmt.Sprintf("%0*d", precision, int(scaled)), "0")
	}

	out := fmt.Sprintf("%02d:%02d", minutes, whole)
	if digits != "" {
		out += "." + digits
	}

	return out
}
