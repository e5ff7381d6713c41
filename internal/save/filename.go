package save

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extension is appended to generated filenames that lack it.
const Extension = ".md"

// maxTitleLength bounds the sanitized title portion of a filename.
const maxTitleLength = 100

var reservedChars = regexp.MustCompile(`[/\\?%*:|"<>]`)

// SanitizeTitle strips characters illegal in file paths and caps the length.
// CJK and other non-ASCII text is preserved.
func SanitizeTitle(title string) string {
	if title == "" {
		title = "Conversation"
	}
	safe := strings.TrimSpace(reservedChars.ReplaceAllString(title, "-"))
	runes := []rune(safe)
	if len(runes) > maxTitleLength {
		safe = string(runes[:maxTitleLength])
	}
	return safe
}

// GenerateFilename substitutes {title}, {date}, {time} and {id} into the
// pattern and guarantees the result ends in the Markdown extension.
func GenerateFilename(pattern, title, id string) string {
	return generateFilenameAt(pattern, title, id, time.Now())
}

func generateFilenameAt(pattern, title, id string, now time.Time) string {
	if id == "" {
		id = strconv.FormatInt(now.UnixMilli(), 10)
	}
	name := substitute(pattern, map[string]string{
		"title": SanitizeTitle(title),
		"date":  now.Format("2006-01-02"),
		"time":  now.Format("150405"),
		"id":    id,
	})
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	return name
}
