// Package calendar parses the org-mode calendar export consumed by the
// recording controller and the ingest daemon's /calendar endpoint, and
// resolves a best-guess meeting title from the detected recording window.
package calendar

import (
	"regexp"
	"strings"
	"time"
)

// Entry is one parsed calendar heading.
type Entry struct {
	Title        string
	Date         string // YYYY-MM-DD
	StartTime    string // HH:MM, empty for all-day entries
	EndTime      string // HH:MM, empty for all-day entries
	Participants []string
	Location     string
	VideoLinks   []string
}

var entryPattern = regexp.MustCompile(
	`(?m)^\* (.+?) <(\d{4}-\d{2}-\d{2}) \w{3}(?: (\d{2}:\d{2})-(\d{2}:\d{2}))?>\s*\n`,
)

// nextHeading marks where one entry's body ends.
var nextHeading = regexp.MustCompile(`(?m)^\* `)

var participantsPattern = regexp.MustCompile(`(?m):PARTICIPANTS:\s*(.+?)\s*$`)
var locationPattern = regexp.MustCompile(`(?m):LOCATION:\s*(.+?)\s*$`)
var emailSuffix = regexp.MustCompile(`\s*<[^>]+>\s*`)
var videoLinkPattern = regexp.MustCompile(`\[\[(https://[^\]]+)\]\[📹[^\]]*\]\]`)

// Parse extracts entries from an org-mode calendar document. Entries that
// fail to match the heading grammar are skipped rather than aborting the
// whole parse, since a single malformed heading should not take down
// title resolution for every other meeting that day.
func Parse(doc string) []Entry {
	// Ensure a trailing newline so a final heading with no body still ends
	// in the newline the heading grammar requires.
	if !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}

	matches := entryPattern.FindAllStringSubmatchIndex(doc, -1)
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		body := doc[m[1]:]
		if next := nextHeading.FindStringIndex(body); next != nil {
			body = body[:next[0]]
		}
		entry := Entry{
			Title: strings.TrimSpace(doc[m[2]:m[3]]),
			Date:  doc[m[4]:m[5]],
		}
		if m[6] >= 0 {
			entry.StartTime, entry.EndTime = doc[m[6]:m[7]], doc[m[8]:m[9]]
		}

		if pm := participantsPattern.FindStringSubmatch(body); pm != nil {
			for _, p := range strings.Split(pm[1], ",") {
				p = emailSuffix.ReplaceAllString(p, "")
				p = strings.TrimSpace(p)
				if p != "" {
					entry.Participants = append(entry.Participants, p)
				}
			}
		}
		if lm := locationPattern.FindStringSubmatch(body); lm != nil {
			entry.Location = strings.TrimSpace(lm[1])
		}
		for _, vm := range videoLinkPattern.FindAllStringSubmatch(body, -1) {
			entry.VideoLinks = append(entry.VideoLinks, vm[1])
		}

		entries = append(entries, entry)
	}
	return entries
}

// titleMatchPad is how far outside an entry's [start, end) window "now" is
// still allowed to fall and still count as a match, absorbing clock skew
// between the calendar export and the detector's own clock.
const titleMatchPad = 5 * time.Minute

// MatchTitle finds the best calendar entry for a recording that started at
// now, preferring timed entries whose window contains now (within
// titleMatchPad) over same-date all-day entries, and preferring the
// smallest distance between now and the entry's start time.
func MatchTitle(entries []Entry, now time.Time) (string, bool) {
	date := now.Format("2006-01-02")

	var best Entry
	var bestDist time.Duration
	haveTimed := false
	var allDayFallback string
	haveAllDay := false

	for _, e := range entries {
		if e.Date != date {
			continue
		}

		if e.StartTime == "" {
			if !haveAllDay {
				allDayFallback = e.Title
				haveAllDay = true
			}
			continue
		}

		start, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.StartTime, now.Location())
		if err != nil {
			continue
		}
		end := start
		if e.EndTime != "" {
			if parsedEnd, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.EndTime, now.Location()); err == nil {
				end = parsedEnd
			}
		}

		windowStart := start.Add(-titleMatchPad)
		windowEnd := end.Add(titleMatchPad)
		if now.Before(windowStart) || now.After(windowEnd) {
			continue
		}

		dist := absDuration(now.Sub(start))
		if !haveTimed || dist < bestDist {
			best = e
			bestDist = dist
			haveTimed = true
		}
	}

	if haveTimed {
		return best.Title, true
	}
	if haveAllDay {
		return allDayFallback, true
	}
	return "", false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
