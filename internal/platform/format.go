package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeTitle makes a media title safe for filesystem and caption use.
func SanitizeTitle(title string) string {
	title = unsafeChars.ReplaceAllString(title, "")
	title = strings.TrimSpace(whitespace.ReplaceAllString(title, " "))

	runes := []rune(title)
	if len(runes) > 100 {
		title = string(runes[:100])
	}

	if title == "" {
		return "media_file"
	}
	return title
}

// FormatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "Unknown"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FileSize returns the humanized size of the file at path.
func FileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "Unknown"
	}
	return humanize.Bytes(uint64(info.Size()))
}
