package bulkload

import (
	"fmt"
	"time"
)

// ParseArchiveTime parses the archive's timestamp format,
// "2006-01-02 15:04:05+0000". Some dumps abbreviate the zone to two
// digits ("+00"); those are widened before parsing. RFC 3339 is accepted
// as a fallback.
func ParseArchiveTime(s string) (time.Time, error) {
	if len(s) == 22 && (s[19] == '+' || s[19] == '-') {
		s += "00"
	}
	if t, err := time.Parse("2006-01-02 15:04:05-0700", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing archive timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
