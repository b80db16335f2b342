package taskform

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	dps "github.com/markusmobius/go-dateparser"
)

// limitTimePrecision is the resolution of the stored limit time. The future
// check runs on the truncated instant so the stored value is itself in the future.
const limitTimePrecision = time.Minute

// parseLimitTime reads s in loc. Absolute dates go through dateparse first;
// relative and natural-language input ("tomorrow", "in 2 days", "next friday")
// is resolved against now. Unparseable input yields the zero time, which never
// passes the future check.
func parseLimitTime(s string, now time.Time, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := dateparse.ParseIn(s, loc); err == nil {
		return t
	}

	cfg := &dps.Configuration{
		CurrentTime:         now.In(loc),
		DefaultTimezone:     loc,
		PreferredDateSource: dps.Future,
	}
	dt, err := dps.Parse(cfg, s)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}
	}
	return dt.Time
}
