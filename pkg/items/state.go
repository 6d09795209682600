package items

import "time"

// RecentWindow is how long after first being seen an item counts as new.
const RecentWindow = 30 * 24 * time.Hour

// IsExpired reports whether the item's expiry lies strictly before now.
// Items without an expiry, with "never", or with an unparseable expiry are
// not expired.
func IsExpired(item Item, now time.Time) bool {
	at, ok, err := ExpiresAt(item)
	if err != nil || !ok {
		return false
	}
	return at.Before(now)
}

// IsRemoved reports whether the source explicitly dropped the item.
func IsRemoved(item Item) bool {
	switch item.InSource {
	case SourceMissing:
		return true
	default:
		// SourcePresent, and SourceUnreported which defaults to present.
		return false
	}
}

// IsRecent reports whether the item was first seen less than RecentWindow
// before now.
func IsRecent(item Item, now time.Time) bool {
	return isRecentWithin(item, now, RecentWindow)
}

func isRecentWithin(item Item, now time.Time, window time.Duration) bool {
	seen, ok, err := FirstSeenAt(item)
	if err != nil || !ok {
		return false
	}
	return now.Sub(seen) < window
}

// State bundles the three flags for one item at one moment.
type State struct {
	Expired bool `json:"expired"`
	Removed bool `json:"removed"`
	Recent  bool `json:"recent"`
}

// Evaluator evaluates items against a clock. The zero value uses the wall
// clock and RecentWindow.
type Evaluator struct {
	Clock        func() time.Time
	RecentWindow time.Duration
}

// At returns an Evaluator pinned to a fixed reference moment.
func At(now time.Time) Evaluator {
	return Evaluator{Clock: func() time.Time { return now }}
}

func (e Evaluator) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

func (e Evaluator) window() time.Duration {
	if e.RecentWindow <= 0 {
		return RecentWindow
	}
	return e.RecentWindow
}

func (e Evaluator) IsExpired(item Item) bool {
	return IsExpired(item, e.now())
}

func (e Evaluator) IsRemoved(item Item) bool {
	return IsRemoved(item)
}

func (e Evaluator) IsRecent(item Item) bool {
	return isRecentWithin(item, e.now(), e.window())
}

// Classify evaluates all three predicates against a single clock reading.
func (e Evaluator) Classify(item Item) State {
	now := e.now()
	return State{
		Expired: IsExpired(item, now),
		Removed: IsRemoved(item),
		Recent:  isRecentWithin(item, now, e.window()),
	}
}
