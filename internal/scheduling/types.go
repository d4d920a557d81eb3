// Package scheduling holds the canonical appointment-slot model and the
// availability rules applied to every slot shown to a patient, whether the
// slot came from the clinic backend or was generated locally.
package scheduling

import (
	"time"
)

// fallbackBlockDuration is assumed when a booking record arrives without a
// usable end time. Upstream records are not always trustworthy here; see the
// exact-collision rule in Filter.
const fallbackBlockDuration = 30 * time.Minute

// Doctor is the canonical identity for a dentist, normalized from the
// several record shapes the clinic backend can return.
type Doctor struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}

// Key returns the identity used for slot deduplication. The numeric ID wins
// when present; some directory endpoints only expose the dentist code.
func (d Doctor) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Code
}

// Slot is a candidate bookable start time for one doctor.
type Slot struct {
	Doctor   Doctor        `json:"doctor"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"-"`

	// Unavailable is the single normalized flag for the various
	// booked/unavailable markers upstream records carry.
	Unavailable bool `json:"-"`
}

// End returns the exclusive end of the slot interval.
func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Key identifies a slot by doctor and start minute. The start is normalized
// to UTC so records for the same instant dedupe regardless of the offset
// their source endpoint reported them in.
func (s Slot) Key() string {
	return s.Doctor.Key() + "|" + s.Start.UTC().Truncate(time.Minute).Format(time.RFC3339)
}

// BookedBlock is a time interval already occupied by a confirmed appointment.
type BookedBlock struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewBookedBlock builds a block, substituting a default duration when the
// record's end time is missing or not after its start.
func NewBookedBlock(start, end time.Time) BookedBlock {
	if end.IsZero() || !end.After(start) {
		end = start.Add(fallbackBlockDuration)
	}
	return BookedBlock{Start: start, End: end}
}

// Overlaps reports whether [start, end) intersects the block's [Start, End).
func (b BookedBlock) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

// StartsSameMinute reports whether t and the block start fall on the same
// calendar minute.
func (b BookedBlock) StartsSameMinute(t time.Time) bool {
	return b.Start.Truncate(time.Minute).Equal(t.Truncate(time.Minute))
}
