package cli

import "fmt"

// FormatDuration formats a duration in seconds as a human readable string.
func FormatDuration(secs float64) string {
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs) / 60
	rem := secs - float64(mins*60)
	return fmt.Sprintf("%dm%02.0fs", mins, rem)
}

// FormatOffset formats a segment offset in seconds as mm:ss.
func FormatOffset(secs float64) string {
	mins := int(secs) / 60
	rem := int(secs) % 60
	return fmt.Sprintf("%02d:%02d", mins, rem)
}
