// Package reldate resolves the "posted" indicators listing sites expose
// (ISO dates, relative phrases in English or German) into absolute dates.
package reldate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoPattern   = regexp.MustCompile(`(20\d{2}-\d{2}-\d{2})`)
	daysPattern  = regexp.MustCompile(`(\d+)\s*(tag|tage|day|days)`)
	weeksPattern = regexp.MustCompile(`(\d+)\s*(woche|wochen|week|weeks)`)
)

// Resolve turns a raw posted indicator into a calendar date. The second
// return value is false when the phrase is unrecognized; callers must
// treat that permissively and never exclude a posting on it alone.
func Resolve(value string, now time.Time) (time.Time, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return time.Time{}, false
	}
	today := now.UTC().Truncate(24 * time.Hour)

	if m := isoPattern.FindString(v); m != "" {
		if parsed, err := time.Parse("2006-01-02", m); err == nil {
			return parsed, true
		}
	}
	if strings.Contains(v, "heute") || strings.Contains(v, "today") {
		return today, true
	}
	if strings.Contains(v, "gestern") || strings.Contains(v, "yesterday") {
		return today.AddDate(0, 0, -1), true
	}
	for _, marker := range []string{"hour", "stunden", "minute", "minuten", "just now"} {
		if strings.Contains(v, marker) {
			return today, true
		}
	}
	if m := daysPattern.FindStringSubmatch(v); m != nil {
		days, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, -days), true
	}
	if m := weeksPattern.FindStringSubmatch(v); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, -weeks*7), true
	}
	return time.Time{}, false
}

// ResolvePtr is Resolve returning nil for unresolvable phrases, matching
// the optional posted-date field on postings.
func ResolvePtr(value string, now time.Time) *time.Time {
	if date, ok := Resolve(value, now); ok {
		return &date
	}
	return nil
}
