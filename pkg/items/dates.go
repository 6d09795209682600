package items

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is wrapped by every InvalidDateError.
var ErrInvalidDate = errors.New("invalid date")

type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid date %q", e.Value)
	}
	return fmt.Sprintf("invalid date in %s: %q", e.Field, e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}

// Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
}

const (
	// Numeric dates at or above this magnitude are unix milliseconds, below
	// it unix seconds. 1e11 seconds is past the year 5000, 1e11 ms is 1973.
	unixMillisThreshold = 1e11

	// JavaScript's Date range: 100,000,000 days either side of the epoch.
	maxUnixMillis = 8.64e15
)

// DateUnix builds a Date from a numeric timestamp in unix seconds or
// milliseconds. Values outside the representable range keep their raw form
// and fail to resolve with an InvalidDateError.
func DateUnix(n float64) *Date {
	ms := n
	if math.Abs(n) < unixMillisThreshold {
		ms = n * 1000
	}
	if math.IsNaN(ms) || math.Abs(ms) > maxUnixMillis {
		return DateString(strconv.FormatFloat(n, 'g', -1, 64))
	}
	whole, frac := math.Modf(ms)
	t := time.UnixMilli(int64(whole)).Add(time.Duration(frac * float64(time.Millisecond)))
	return DateOf(t.UTC())
}

// ParseDate parses a calendar date or date-time string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{Value: s}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateError{Value: s}
}

// ExpiresAt resolves the expires field. ok is false when the item never
// expires, either because the field is absent or because it holds "never".
func ExpiresAt(item Item) (t time.Time, ok bool, err error) {
	if item.Expires == nil || item.Expires.isNever() {
		return time.Time{}, false, nil
	}
	t, err = item.Expires.Resolve()
	if err != nil {
		return time.Time{}, false, &InvalidDateError{Field: "expires", Value: item.Expires.Raw}
	}
	return t, true, nil
}

// FirstSeenAt resolves the date_first_seen field. ok is false when absent.
func FirstSeenAt(item Item) (t time.Time, ok bool, err error) {
	if item.DateFirstSeen == nil {
		return time.Time{}, false, nil
	}
	t, err = item.DateFirstSeen.Resolve()
	if err != nil {
		return time.Time{}, false, &InvalidDateError{Field: "date_first_seen", Value: item.DateFirstSeen.Raw}
	}
	return t, true, nil
}
