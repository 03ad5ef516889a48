package util

import (
    "testing"
    "time"
)

func TestCompactDateKey(t *testing.T) {
    cases := map[string]string{
        "2024-01-02":          "20240102",
        "2024-01-02 15:00:00": "20240102",
        "20240102":            "20240102",
        "n/a":                 "",
        "":                    "",
    }
    for in, want := range cases {
        if got := CompactDateKey(in); got != want {
            t.Errorf("CompactDateKey(%q) = %q, want %q", in, got, want)
        }
    }
}

func TestParseCompactDate(t *testing.T) {
    got, ok := ParseCompactDate("20240102")
    if !ok {
        t.Fatalf("expected ok")
    }
    want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("unexpected time %v", got)
    }

    if _, ok := ParseCompactDate("2024-01-02"); ok {
        t.Fatal("dashed date should not parse")
    }
    if _, ok := ParseCompactDate("20241302"); ok {
        t.Fatal("month 13 should not parse")
    }
}

func TestFormatCompactDate(t *testing.T) {
    got := FormatCompactDate(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
    if got != "20240601" {
        t.Fatalf("got %q", got)
    }
}

func TestParseIntDefault(t *testing.T) {
    if got := ParseIntDefault("42", 7); got != 42 {
        t.Fatalf("got %d", got)
    }
    if got := ParseIntDefault("", 7); got != 7 {
        t.Fatalf("got %d", got)
    }
    if got := ParseIntDefault("abc", 7); got != 7 {
        t.Fatalf("got %d", got)
    }
}
