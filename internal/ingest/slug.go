package ingest

import (
	"regexp"
	"strings"
	"time"
)

const maxSlugLength = 50

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	nonSlugChar      = regexp.MustCompile(`[^a-z0-9\-_]`)
	hyphenRun        = regexp.MustCompile(`-+`)
)

// sanitizeFilename lowercases title, replaces whitespace with hyphens,
// strips anything outside [a-z0-9_-], collapses hyphen runs, trims, and
// caps length, falling back to "untitled" if nothing survives.
// Idempotent: sanitizeFilename(sanitizeFilename(x)) == sanitizeFilename(x).
func sanitizeFilename(title string) string {
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

// generateFilename builds "YYYYMMDD-HHMMSS-<slug>.txt" for title at now.
func generateFilename(title string, now time.Time) string {
	return now.Format("20060102-150405") + "-" + sanitizeFilename(title) + ".txt"
}
