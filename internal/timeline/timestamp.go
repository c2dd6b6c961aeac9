package timeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp converts a subtitle timestamp into seconds.
//
// Accepted forms are "HH:MM:SS,mmm", "HH:MM:SS.mmm", "H:MM:SS", "MM:SS" and
// plain seconds ("12.5"). Anything it cannot read yields 0, so a malformed cue
// never aborts a render.
func ParseTimestamp(ts string) float64 {
	clean := strings.ReplaceAll(strings.TrimSpace(ts), ",", ".")
	if clean == "" {
		return 0
	}

	if !strings.Contains(clean, ":") {
		v, _ := number(clean)
		return v
	}

	parts := strings.Split(clean, ":")
	if len(parts) > 3 {
		return 0
	}

	// Segments are read right to left: seconds, minutes, hours.
	var total float64
	unit := 1.0
	for i := len(parts) - 1; i >= 0; i-- {
		v, ok := number(parts[i])
		if !ok {
			return 0
		}
		total += v * unit
		unit *= 60
	}
	return total
}

func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatTimestamp renders seconds in the SRT form "HH:MM:SS,mmm".
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		total/3600000, (total/60000)%60, (total/1000)%60, total%1000)
}
