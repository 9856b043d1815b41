package model

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp text formats used across the store.
//
// Filenames and the timestamp ledger round-trip dates through two
// shapes: the compact filename form 20240105T000000Z and the ISO form
// 2024-01-05T00:00:00. Both must parse on read.
const (
	// FilenameFormat is the timestamp shape embedded in log filenames.
	FilenameFormat = "20060102T150405Z"

	// LedgerFormat is the shape persisted in the timestamp ledger.
	LedgerFormat = "2006-01-02T15:04:05"

	// ProcessingFormat is the shape stamped into _processing maps.
	ProcessingFormat = "2006-01-02T15:04:05Z"
)

// upstreamLayouts are the date shapes the scraper emits. Tried in
// order; first hit wins.
var upstreamLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatTimestamp parses an upstream date string and renders it in the
// compact filename form. Returns an error for dates in none of the
// accepted shapes.
func FormatTimestamp(date string) (string, error) {
	if date == "" {
		return "", fmt.Errorf("format timestamp: empty date")
	}
	for _, layout := range upstreamLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format(FilenameFormat), nil
		}
	}
	return "", fmt.Errorf("format timestamp: unrecognized date %q", date)
}

// ParseTimestamp reads either accepted round-trip form: ISO with
// separators (ledger) or compact without (filenames). A trailing Z is
// ignored in both.
func ParseTimestamp(s string) (time.Time, error) {
	trimmed := strings.TrimSuffix(s, "Z")
	layout := "20060102T150405"
	if strings.Contains(trimmed, "-") {
		layout = LedgerFormat
	}
	t, err := time.Parse(layout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ProcessingTimestamp renders a wall-clock instant for _processing
// metadata.
func ProcessingTimestamp(t time.Time) string {
	return t.UTC().Format(ProcessingFormat)
}
