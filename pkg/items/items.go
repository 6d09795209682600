package items

import (
	"strings"
	"time"
)

// NeverExpires is the marker an upstream store puts in "expires" for items
// without an end date.
const NeverExpires = "never"

// SourcePresence records what the source said about an item. Absence of the
// in_source flag is not the same as in_source=false.
type SourcePresence int

const (
	// SourceUnreported means the record carried no in_source flag. The item is
	// assumed to still be in its source.
	SourceUnreported SourcePresence = iota
	SourcePresent
	SourceMissing
)

func (p SourcePresence) String() string {
	switch p {
	case SourcePresent:
		return "present"
	case SourceMissing:
		return "missing"
	default:
		return "unreported"
	}
}

// PresenceOf maps an optional in_source flag to a SourcePresence.
func PresenceOf(inSource *bool) SourcePresence {
	switch {
	case inSource == nil:
		return SourceUnreported
	case *inSource:
		return SourcePresent
	default:
		return SourceMissing
	}
}

// Date is a date-like field value. Either Time is set, or Raw holds the
// string form as it came from the source.
type Date struct {
	Time time.Time
	Raw  string
}

func DateOf(t time.Time) *Date {
	return &Date{Time: t}
}

func DateString(s string) *Date {
	return &Date{Raw: s}
}

func (d *Date) isNever() bool {
	return d.Time.IsZero() && strings.EqualFold(strings.TrimSpace(d.Raw), NeverExpires)
}

// Resolve returns the moment the date refers to.
func (d *Date) Resolve() (time.Time, error) {
	if !d.Time.IsZero() {
		return d.Time, nil
	}
	return ParseDate(d.Raw)
}

func (d *Date) String() string {
	if d == nil {
		return ""
	}
	if !d.Time.IsZero() {
		return d.Time.Format(time.RFC3339)
	}
	return d.Raw
}

// Item is a tracked catalog or feed entry as handed over by a store or an
// ingestion job. Only the fields used for state evaluation are modelled.
type Item struct {
	ID            string
	Title         string
	Expires       *Date
	InSource      SourcePresence
	DateFirstSeen *Date
}
