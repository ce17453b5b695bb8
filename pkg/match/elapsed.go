package match

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as "1h:02m:03s", "2m:03s" or "3s" depending on its magnitude
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh:%02dm:%02ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm:%02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
