package util

import (
	"strconv"
	"time"
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 1e11

// ParseTime accepts RFC3339 (with or without fractional seconds) and epoch
// seconds or milliseconds. The result is in UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > millisThreshold {
			return time.UnixMilli(ts).UTC(), true
		}
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeValue is ParseTime over a decoded JSON value: strings as above and
// numbers as epoch seconds or milliseconds.
func ParseTimeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		return ParseTime(x)
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return x.UTC(), true
	case int64:
		return ParseTime(strconv.FormatInt(x, 10))
	case float64:
		return ParseTime(strconv.FormatInt(int64(x), 10))
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
