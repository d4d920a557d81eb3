package scheduling

import (
	"testing"
	"time"
)

func at(clock string) time.Time {
	t, _ := time.Parse("15:04", clock)
	return time.Date(2026, 9, 14, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func slot(clock string, d time.Duration) Slot {
	return Slot{Doctor: drSmith, Start: at(clock), Duration: d}
}

func TestFilterDropsPastSlotsOnSameDayOnly(t *testing.T) {
	now := at("12:00")
	tomorrow := slot("10:00", 30*time.Minute)
	tomorrow.Start = tomorrow.Start.AddDate(0, 0, 1)
	// The past-slot rule is scoped to "today": a slot on another calendar
	// day is never dropped for being behind the clock.
	yesterday := slot("10:00", 30*time.Minute)
	yesterday.Start = yesterday.Start.AddDate(0, 0, -1)

	slots := []Slot{
		slot("10:00", 30*time.Minute), // today, already past
		slot("14:00", 30*time.Minute), // today, still ahead
		tomorrow,
		yesterday,
	}

	got := Filter(now, slots, nil)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Start.Format("15:04") != "14:00" {
		t.Errorf("first kept slot = %s, want 14:00", got[0].Start.Format("15:04"))
	}
	for _, s := range got {
		if s.Start.Before(now) && sameDay(s.Start, now) {
			t.Errorf("kept same-day past slot %s", s.Start)
		}
	}
}

func TestFilterDropsFlaggedUnavailable(t *testing.T) {
	now := at("08:00")
	taken := slot("10:00", 30*time.Minute)
	taken.Unavailable = true

	got := Filter(now, []Slot{taken, slot("11:00", 30*time.Minute)}, nil)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Start.Format("15:04") != "11:00" {
		t.Errorf("kept slot = %s, want 11:00", got[0].Start.Format("15:04"))
	}
}

func TestFilterExactCollision(t *testing.T) {
	now := at("08:00")
	blocks := []BookedBlock{NewBookedBlock(at("10:00"), at("10:30"))}

	// Same start minute, even with a different duration assumption.
	got := Filter(now, []Slot{slot("10:00", 30*time.Minute)}, blocks)
	if len(got) != 0 {
		t.Fatalf("exact-collision slot survived: %v", got)
	}

	got = Filter(now, []Slot{slot("10:00", 60*time.Minute)}, blocks)
	if len(got) != 0 {
		t.Fatalf("exact-collision slot with longer duration survived: %v", got)
	}
}

func TestFilterExactCollisionWithDefaultedBlockDuration(t *testing.T) {
	now := at("08:00")
	// End missing upstream: NewBookedBlock defaults it to 30 minutes.
	blocks := []BookedBlock{NewBookedBlock(at("10:00"), time.Time{})}

	got := Filter(now, []Slot{slot("10:00", 15*time.Minute)}, blocks)
	if len(got) != 0 {
		t.Fatalf("slot starting on a defaulted block's minute survived: %v", got)
	}
}

func TestFilterRangeOverlap(t *testing.T) {
	now := at("08:00")
	blocks := []BookedBlock{NewBookedBlock(at("10:00"), at("10:30"))}

	tests := []struct {
		name string
		slot Slot
		kept bool
	}{
		{"overlaps tail of block", slot("10:15", 30*time.Minute), false},
		{"slot spans block", slot("09:45", 60*time.Minute), false},
		{"abuts block end", slot("10:30", 30*time.Minute), true},
		{"abuts block start", slot("09:30", 30*time.Minute), true},
		{"clear of block", slot("13:00", 30*time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(now, []Slot{tt.slot}, blocks)
			if kept := len(got) == 1; kept != tt.kept {
				t.Errorf("kept = %v, want %v", kept, tt.kept)
			}
		})
	}
}

func TestFilterDeduplicatesByDoctorAndStart(t *testing.T) {
	now := at("08:00")
	other := Doctor{ID: "d2", Name: "Dr. Patel"}

	dup := slot("10:00", 30*time.Minute)
	sameTimeOtherDoctor := Slot{Doctor: other, Start: at("10:00"), Duration: 30 * time.Minute}

	got := Filter(now, []Slot{dup, dup, sameTimeOtherDoctor}, nil)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	seen := map[string]bool{}
	for _, s := range got {
		if seen[s.Key()] {
			t.Errorf("duplicate key %s in output", s.Key())
		}
		seen[s.Key()] = true
	}
}

func TestFilterDeduplicatesAcrossOffsets(t *testing.T) {
	now := at("08:00")

	// The same instant reported in UTC and in a +02:00 offset must share a
	// dedupe key.
	utc := slot("10:00", 30*time.Minute)
	offset := Slot{
		Doctor:   drSmith,
		Start:    utc.Start.In(time.FixedZone("EET", 2*60*60)),
		Duration: 30 * time.Minute,
	}
	if utc.Key() != offset.Key() {
		t.Fatalf("keys differ across offsets: %q vs %q", utc.Key(), offset.Key())
	}

	got := Filter(now, []Slot{utc, offset}, nil)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestFilterPreservesDiscoveryOrder(t *testing.T) {
	now := at("08:00")
	slots := []Slot{
		slot("15:00", 30*time.Minute),
		slot("09:00", 30*time.Minute),
		slot("12:00", 30*time.Minute),
	}

	got := Filter(now, slots, nil)
	want := []string{"15:00", "09:00", "12:00"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Start.Format("15:04") != want[i] {
			t.Errorf("slots[%d] = %s, want %s", i, s.Start.Format("15:04"), want[i])
		}
	}
}

func TestFilterOutputInvariants(t *testing.T) {
	now := at("11:10")
	w := DefaultWindow()
	candidates, err := w.Candidates(drSmith, day(t), 30*time.Minute, "")
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}

	blocks := []BookedBlock{
		NewBookedBlock(at("13:00"), at("13:30")),
		NewBookedBlock(at("16:00"), time.Time{}),
	}

	got := Filter(now, candidates, blocks)
	if len(got) == 0 {
		t.Fatal("expected open slots")
	}
	for _, s := range got {
		if s.Start.Before(now) {
			t.Errorf("slot %s is in the past", s.Start)
		}
		for _, b := range blocks {
			if b.Overlaps(s.Start, s.End()) {
				t.Errorf("slot %s overlaps block %s-%s", s.Start, b.Start, b.End)
			}
			if b.StartsSameMinute(s.Start) {
				t.Errorf("slot %s collides with block start", s.Start)
			}
		}
	}
}

func TestNewBookedBlockDefaultsBadEnd(t *testing.T) {
	start := at("10:00")

	for _, end := range []time.Time{{}, start, start.Add(-time.Hour)} {
		b := NewBookedBlock(start, end)
		if !b.End.Equal(start.Add(30 * time.Minute)) {
			t.Errorf("NewBookedBlock end = %s, want start+30m", b.End)
		}
	}
}
