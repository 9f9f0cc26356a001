// Package clock turns client supplied timestamps into the canonical form the
// store compares against: UTC wall-clock values with no offset marker,
// truncated to whole seconds.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Clock supplies the current time. Services take a Clock so tests can pin
// "now" when classifying cards as due.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return Normalize(time.Time(f)) }

// Normalize subtracts the UTC offset carried by t and returns the equivalent
// wall-clock value in UTC. Sub-second precision is dropped so that values
// round-trip through every backend unchanged. Normalize(Normalize(t)) ==
// Normalize(t).
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Date truncates a normalized value to its calendar date.
func Date(t time.Time) time.Time {
	n := Normalize(t)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalNow returns the current time shifted by tzutcdelta seconds, i.e. the
// viewer's local wall clock expressed as a naive value.
func LocalNow(c Clock, tzutcdelta int) time.Time {
	return Normalize(c.Now()).Add(time.Duration(tzutcdelta) * time.Second)
}

// ErrInvalidTimestamp is returned by ParseISO for input in none of the
// accepted layouts.
var ErrInvalidTimestamp = errors.New("invalid ISO-8601 timestamp")

// Layouts accepted by ParseISO. Layouts with a zone are tried first; a value
// without a zone is taken to already be naive.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"2006-01-02T15Z07:00",
	"2006-01-02T15Z0700",
	"2006-01-02T15Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
}

// ParseISO parses an ISO-8601 date or date-time and normalizes it.
func ParseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	// RFC 3339 allows a space in place of the T.
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}
