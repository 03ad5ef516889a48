package util

import (
    "strconv"
    "strings"
    "time"
)

const compactDateLayout = "20060102"

// CompactDateKey turns "2024-01-02" (or a full timestamp) into the
// "20240102" form used for range comparisons. Returns "" when the
// input is not a date.
func CompactDateKey(day string) string {
    if len(day) >= 10 {
        day = day[:10]
    }
    key := strings.ReplaceAll(day, "-", "")
    if _, err := strconv.Atoi(key); err != nil {
        return ""
    }
    return key
}

// ParseCompactDate parses a YYYYMMDD string. Returns (t, true) if it
// is a valid calendar date.
func ParseCompactDate(s string) (time.Time, bool) {
    t, err := time.Parse(compactDateLayout, s)
    if err != nil {
        return time.Time{}, false
    }
    return t, true
}

// FormatCompactDate renders a time as YYYYMMDD.
func FormatCompactDate(t time.Time) string {
    return t.Format(compactDateLayout)
}
