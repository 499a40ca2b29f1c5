package appliance

import (
	"regexp"
	"strings"
	"time"
)

const maxSlugLength = 50

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChar   = regexp.MustCompile(`[^a-z0-9\-_]`)
	hyphenRun     = regexp.MustCompile(`-+`)
)

// sanitizeTitle lowercases title, replaces whitespace with hyphens, strips
// anything outside [a-z0-9_-], collapses hyphen runs, trims, and caps
// length, falling back to "untitled" if nothing survives.
func sanitizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonSlugChar.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// audioFilename builds "YYYYMMDD-HHMMSS-<slug>.wav" for title at t.
func audioFilename(title string, t time.Time) string {
	return t.Format("20060102-150405") + "-" + sanitizeTitle(title) + ".wav"
}

// titleFromFilename recovers a human-readable title from a recording
// filename for recordings re-submitted without an accompanying title, e.g.
// "20260730-140501-weekly-sync.wav" -> "weekly sync".
func titleFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".wav")
	parts := strings.SplitN(name, "-", 3)
	slug := name
	if len(parts) == 3 {
		slug = parts[2]
	}
	return strings.ReplaceAll(slug, "-", " ")
}
