// Package retention implements the "smart remove" policy: given a
// reference instant and four keep counts, decide which sealed snapshots to
// delete so that recent history is kept at full density and older history
// is thinned to at most one snapshot per day, then per week, then per
// month.
//
// Grounded on the original tool's _smart_remove_keep_all_/
// _smart_remove_keep_first_/_smart_remove_list/inc_month/dec_month
// (_examples/original_source/common/test/test_snapshots.py,
// TestSmartRemoveKeepAll/TestSmartRemoveKeepFirst/TestIncMonth/TestDecMonth).
// _smart_remove_keep_first_ keeps at most one snapshot per call: scanning
// candidates most-recent-first and keeping the first match means the kept
// snapshot is the latest one within the window, not (despite the
// "earliest" phrasing a casual reading suggests) the chronologically
// first — verified against TestSmartRemoveKeepFirst, where of two same-day
// snapshots the later one is kept.
package retention

import (
	"sort"
	"time"

	"github.com/mscherer/backintime/snapshot"
)

// Dated pairs a snapshot identity with its resolved timestamp so callers
// don't need to re-resolve snapshot.ID.Time on every comparison.
type Dated struct {
	ID   snapshot.ID
	When time.Time
}

// sortDescending returns a copy of in sorted most-recent-first.
func sortDescending(in []Dated) []Dated {
	out := append([]Dated(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].When.After(out[j].When) })

	return out
}

// KeepAll returns every entry whose timestamp falls in [d1, d2).
func KeepAll(entries []Dated, d1, d2 time.Time) map[string]bool {
	keep := map[string]bool{}

	for _, e := range entries {
		if !e.When.Before(d1) && e.When.Before(d2) {
			keep[e.ID.Key()] = true
		}
	}

	return keep
}

// KeepFirst returns the single most recent entry whose timestamp falls in
// [d1, d2), or an empty map if none qualify.
func KeepFirst(entries []Dated, d1, d2 time.Time) map[string]bool {
	keep := map[string]bool{}

	for _, e := range sortDescending(entries) {
		if !e.When.Before(d1) && e.When.Before(d2) {
			keep[e.ID.Key()] = true
			return keep
		}
	}

	return keep
}

// IncMonth returns the first day of the month after t's, at midnight.
// IncMonth(2016-12-24) == 2017-01-01.
func IncMonth(t time.Time) time.Time {
	firstOfThisMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return firstOfThisMonth.AddDate(0, 1, 0)
}

// DecMonth returns the first day of the month before t's, at midnight.
// DecMonth(2016-01-14) == 2015-12-01.
func DecMonth(t time.Time) time.Time {
	firstOfThisMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return firstOfThisMonth.AddDate(0, -1, 0)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfISOWeek returns the Monday midnight beginning t's ISO week.
func startOfISOWeek(t time.Time) time.Time {
	d := midnight(t)

	offset := int(d.Weekday())
	if offset == 0 { // Sunday
		offset = 7
	}

	return d.AddDate(0, 0, -(offset - 1))
}

// SmartRemoveList computes the deletion list for entries given now and the
// four keep counts, per the original tool's _smart_remove_list:
//
//   - keep-all keeps every entry dated within the keepAll most recent
//     calendar days, today included.
//   - the day buckets are single calendar days anchored to now itself, not
//     to the end of the keep-all window, so the first two or three of them
//     legitimately re-cover days keep-all already kept; this is what makes
//     the day rule land on exactly the right boundary day rather than
//     drifting one day late.
//   - the week buckets are ISO (Monday-Sunday) weeks, starting one ISO week
//     before the ISO week containing the day rule's oldest day - that week
//     was already examined one day at a time and is not revisited as a
//     whole week.
//   - the month buckets are calendar months, starting the month before
//     now's. The last month bucket is open-ended on its old side: it
//     collapses everything older than its upper boundary to a single
//     survivor instead of thinning month by month forever, which is also
//     why the calendar month immediately below the last bounded bucket is
//     never examined and so never keeps anything.
//   - the single oldest entry overall is always kept, regardless of the
//     four rules above, since it anchors every later snapshot's hardlink
//     chain.
//
// Each rule's keep is a union with the others (KeepFirst is free to revisit
// an entry a previous rule already kept). Entries kept by none of them are
// returned for deletion, most-recently-dated first.
func SmartRemoveList(entries []Dated, now time.Time, keepAll, keepPerDay, keepPerWeek, keepPerMonth int) []snapshot.ID {
	keep := map[string]bool{}

	nowDay := midnight(now)

	keepAllStart := nowDay.AddDate(0, 0, -(keepAll - 1))
	for k := range KeepAll(entries, keepAllStart, nowDay.AddDate(0, 0, 1)) {
		keep[k] = true
	}

	remaining := func() []Dated {
		var out []Dated

		for _, e := range entries {
			if !keep[e.ID.Key()] {
				out = append(out, e)
			}
		}

		return out
	}

	lastDay := nowDay

	for i := 0; i < keepPerDay; i++ {
		day := nowDay.AddDate(0, 0, -(i + 1))

		for k := range KeepFirst(remaining(), day, day.AddDate(0, 0, 1)) {
			keep[k] = true
		}

		lastDay = day
	}

	weekEnd := startOfISOWeek(lastDay)

	for i := 0; i < keepPerWeek; i++ {
		weekStart := weekEnd.AddDate(0, 0, -7)

		for k := range KeepFirst(remaining(), weekStart, weekEnd) {
			keep[k] = true
		}

		weekEnd = weekStart
	}

	monthEnd := time.Date(nowDay.Year(), nowDay.Month(), 1, 0, 0, 0, 0, nowDay.Location())

	for i := 0; i < keepPerMonth; i++ {
		monthStart := DecMonth(monthEnd)

		if i == keepPerMonth-1 {
			for k := range KeepFirst(remaining(), time.Time{}, monthStart) {
				keep[k] = true
			}
		} else {
			for k := range KeepFirst(remaining(), monthStart, monthEnd) {
				keep[k] = true
			}
		}

		monthEnd = monthStart
	}

	if len(entries) > 0 {
		oldest := entries[0]

		for _, e := range entries[1:] {
			if e.When.Before(oldest.When) {
				oldest = e
			}
		}

		keep[oldest.ID.Key()] = true
	}

	var toDelete []Dated

	for _, e := range entries {
		if !keep[e.ID.Key()] {
			toDelete = append(toDelete, e)
		}
	}

	sort.Slice(toDelete, func(i, j int) bool { return toDelete[i].When.After(toDelete[j].When) })

	out := make([]snapshot.ID, len(toDelete))
	for i, e := range toDelete {
		out[i] = e.ID
	}

	return out
}
