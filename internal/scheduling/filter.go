package scheduling

import "time"

// Filter removes unavailable slots. It is applied uniformly to slots reported
// by the clinic backend and to locally generated candidates, in this order:
//
//  1. slots already begun are dropped, but only when the slot falls on the
//     same calendar day as now — elapsed clock times on future days stay;
//  2. slots the backend flagged booked/unavailable are dropped;
//  3. slots starting on the exact minute an existing booking starts are
//     dropped, regardless of either duration (booking records sometimes
//     arrive with defaulted durations, so the interval test alone can miss a
//     same-instant double booking);
//  4. slots whose [start, end) interval overlaps a booked [start, end) are
//     dropped;
//  5. duplicates by (doctor, start minute) are dropped, first wins.
//
// Discovery order is preserved.
func Filter(now time.Time, slots []Slot, blocks []BookedBlock) []Slot {
	out := make([]Slot, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))

	for _, s := range slots {
		if s.Start.Before(now) && sameDay(s.Start, now) {
			continue
		}
		if s.Unavailable {
			continue
		}
		if collides(s, blocks) {
			continue
		}
		key := s.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func collides(s Slot, blocks []BookedBlock) bool {
	for _, b := range blocks {
		if b.StartsSameMinute(s.Start) {
			return true
		}
		if b.Overlaps(s.Start, s.End()) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
