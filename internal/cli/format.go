package cli

import (
	"fmt"
	"strings"
	"time"

	"kiwoom-trader/pkg/utils"
)

// FormatPrice formats a KRW price.
func FormatPrice(price int64) string {
	return utils.FormatWon(price)
}

// FormatVolume formats volume with K/M suffix.
func FormatVolume(volume int64) string {
	switch {
	case volume >= 100_000_000:
		return fmt.Sprintf("%.1f억", float64(volume)/100_000_000)
	case volume >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(volume)/1_000_000)
	case volume >= 1_000:
		return fmt.Sprintf("%.1fK", float64(volume)/1_000)
	}
	return fmt.Sprintf("%d", volume)
}

// FormatTime formats time for display in Seoul time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.SeoulLocation).Format("15:04:05")
}

// FormatDate formats a date for display.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatDateTime formats date and time for display in Seoul time.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.SeoulLocation).Format("2006-01-02 15:04:05")
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// TruncateString truncates a string to maxLen runes with an ellipsis.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// ModeLabel returns the order mode shown next to order results.
func ModeLabel(dryRun bool) string {
	if dryRun {
		return "DRY-RUN"
	}
	return "LIVE"
}

// joinOrDash joins values or returns "-" when there are none.
func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
