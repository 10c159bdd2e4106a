package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/creativeprojects/feedme/lib"
)

// ParseDate accepts RFC 2822, ISO 8601 and most other usual layouts.
// An unparseable date gives now.
func ParseDate(value string, now func() time.Time, logger lib.Logger) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now()
	}
	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		lib.OrNoLog(logger).Warnf("cannot parse date %q, using current time instead: %s", value, err)
		return now()
	}
	return parsed
}
