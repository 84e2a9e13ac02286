package viewer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CacheBust appends a t=<unix millis> query parameter so the fetch bypasses
// any cached copy of the resource.
func CacheBust(rawURL string, at time.Time) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "t=" + strconv.FormatInt(at.UnixMilli(), 10)
}

// ConnectionInfo names the tunnel provider the stream URL goes through.
func ConnectionInfo(activeURL string) string {
	switch {
	case strings.Contains(activeURL, "playit.gg"):
		return "via PlayIt.gg"
	case strings.Contains(activeURL, "ngrok.io"):
		return "via ngrok"
	default:
		return "Local connection"
	}
}

// FormatUptime renders whole elapsed seconds as HH:MM:SS. Hours keep
// growing past 99.
func FormatUptime(elapsed time.Duration) string {
	total := int64(elapsed / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatTimeOfDay renders t as local wall clock time.
func FormatTimeOfDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04:05")
}
