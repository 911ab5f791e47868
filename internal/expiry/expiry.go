// Package expiry normalizes the heterogeneous expires_at encodings found in
// stored integration rows: epoch seconds as int or float, digit-only strings,
// and ISO-8601 timestamps with or without a trailing Z or zone offset.
package expiry

import (
	"strconv"
	"strings"
	"time"
)

// isoLayouts covers RFC3339 plus the zone-less ISO form older rows were
// written with (datetime.utcfromtimestamp().isoformat() produces no offset;
// those instants are UTC).
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Parse converts a raw expires_at value into epoch seconds. The second return
// is false for nil, empty, or unparsable input; callers must treat that as
// "expired/unknown", never as "valid forever".
func Parse(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		return parseString(t)
	default:
		return 0, false
	}
}

func parseString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	// A trailing Z is equivalent to +00:00; RFC3339 already accepts it.
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Unix(), true
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Format renders epoch seconds as the canonical storage form: ISO-8601 UTC
// with whole-second precision and a Z suffix. Parse(Format(e)) == e.
func Format(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}

// Expired reports whether the stored value is at or past expiry as of now,
// applying skew so a token is refreshed slightly before the provider would
// reject it. Unparsable values count as expired.
func Expired(v any, skew time.Duration, now time.Time) bool {
	ts, ok := Parse(v)
	if !ok {
		return true
	}
	return now.Unix() >= ts-int64(skew.Seconds())
}
