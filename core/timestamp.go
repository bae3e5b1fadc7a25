package core

import "time"

// TimestampLayout is the ISO-8601 layout used for Session.LastModified: UTC
// with exactly three fractional digits and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp serializes t in UTC with millisecond precision. Sub-
// millisecond digits are truncated.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// ParseTimestamp parses a value produced by FormatTimestamp. Any RFC 3339
// timestamp is also accepted.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
