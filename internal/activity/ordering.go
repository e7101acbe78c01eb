package activity

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"flowdeck/internal/types"
)

var startedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999",
}

// ParseStartedTime parses the timestamp formats the feed is known to emit.
// Anything else, including an empty value, yields the zero time. Time-only
// values land on January 1 of year 0, before the zero time, so ordering does
// not rely on the zero value alone (see Entry.Timed).
func ParseStartedTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range startedTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}

// Entry is a derived, display-ready view of a record. Index is the 1-based
// chronological position; it is never written back to the store. Timed is
// false when the start time was missing or unparseable; such entries order
// before every timed one.
type Entry struct {
	Record      types.ActivityRecord
	Index       int
	StartedAt   time.Time
	Timed       bool
	Highlighted bool
}

func newEntry(record types.ActivityRecord) Entry {
	started := ParseStartedTime(record.StartedTime)
	return Entry{Record: record, StartedAt: started, Timed: !started.IsZero()}
}

// startedBefore reports whether a starts strictly earlier than b.
func startedBefore(a, b Entry) bool {
	if a.Timed != b.Timed {
		return !a.Timed
	}
	return a.StartedAt.Before(b.StartedAt)
}

// Chronological sorts records ascending by start time, keeping arrival order
// for ties, and assigns 1-based indices.
func Chronological(records []types.ActivityRecord) []Entry {
	entries := make([]Entry, len(records))
	for i, record := range records {
		entries[i] = newEntry(record)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return startedBefore(entries[i], entries[j])
	})
	for i := range entries {
		entries[i].Index = i + 1
	}
	return entries
}

// DisplayOrder returns a copy of entries sorted by start time in the chosen
// direction. Equal start times keep their relative input order.
func DisplayOrder(entries []Entry, descending bool) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return startedBefore(out[j], out[i])
		}
		return startedBefore(out[i], out[j])
	})
	return out
}

// Orderer caches both orderings for one store. The chronological pass is
// redone only when the store revision moves, so toggling the direction never
// renumbers entries.
type Orderer struct {
	valid         bool
	revision      uint64
	chronological []Entry
	displayValid  bool
	displayDesc   bool
	display       []Entry
}

// Entries returns a caller-owned copy of the display-ordered entries.
func (o *Orderer) Entries(store *Store, descending bool) []Entry {
	if store == nil {
		return nil
	}
	records, revision := store.Snapshot()
	if !o.valid || revision != o.revision {
		o.chronological = Chronological(records)
		o.revision = revision
		o.valid = true
		o.displayValid = false
	}
	if !o.displayValid || o.displayDesc != descending {
		o.display = DisplayOrder(o.chronological, descending)
		o.displayDesc = descending
		o.displayValid = true
	}
	out := make([]Entry, len(o.display))
	copy(out, o.display)
	return out
}
