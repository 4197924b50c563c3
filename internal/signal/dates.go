package signal

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the ISO calendar date layout used for scan dates.
const DateLayout = "2006-01-02"

// ParseTime parses timestamps in the many shapes collectors emit (RFC3339,
// RFC1123, "2006-01-02 15:04", bare dates). Values without a zone are read as
// UTC. ok is false when the value is blank or unparseable.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", value)
	}
	return t, nil
}

// DaysBetween returns whole calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
