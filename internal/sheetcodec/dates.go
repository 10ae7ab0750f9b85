package sheetcodec

import (
	"regexp"
	"strconv"
	"time"
)

// sheetEpoch is the zero point of spreadsheet date serials. Day 1 is
// 1899-12-31; the epoch is the 30th because of the sheet lineage's
// historical leap-year-1900 bug, which every spreadsheet still emulates.
var sheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxPlausibleSerial caps serial interpretation at roughly year 2173.
// Longer digit runs are almost always phone numbers that landed in a
// date column.
const maxPlausibleSerial = 100000

var serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// dateLayouts are tried in order for non-serial date strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
}

// DecodeDate parses a sheet cell as a date. Pure numeric values are
// treated as spreadsheet serials (days since sheetEpoch, fractional part
// is time of day); anything else is tried against known calendar
// layouts. Returns ok=false for empty, unparseable, or implausible
// input — never panics, never guesses.
func DecodeDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	if serialPattern.MatchString(raw) {
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil || serial <= 0 || serial >= maxPlausibleSerial {
			return time.Time{}, false
		}
		ms := int64(serial * 24 * 60 * 60 * 1000)
		return sheetEpoch.Add(time.Duration(ms) * time.Millisecond), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// EncodeDate renders a date the way the sheet expects day-granularity
// values.
func EncodeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// EncodeDateTime renders a timestamp with second precision.
func EncodeDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
