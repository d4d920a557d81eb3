package clinicapi

import (
	"strings"
	"time"

	"github.com/novadent/booking-gateway/internal/scheduling"
)

// timeLayouts are the start/end formats the backend has been seen emitting.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize maps a directory record, whichever endpoint shape it came from,
// onto the canonical doctor identity.
func (r RawDoctor) Normalize() scheduling.Doctor {
	doc := scheduling.Doctor{}

	for _, id := range []string{r.ID.String(), r.DoctorID.String(), r.UserID.String(), r.MongoID} {
		if id != "" {
			doc.ID = id
			break
		}
	}
	for _, code := range []string{r.DentistCode, r.Code, r.Specialization} {
		if code != "" {
			doc.Code = code
			break
		}
	}
	for _, name := range []string{r.Name, r.FullName, r.DoctorName} {
		if name != "" {
			doc.Name = name
			break
		}
	}
	return doc
}

// NormalizeSlot converts a backend availability record to a canonical slot,
// reconciling doctor identity against the loaded directory. The second
// return is false when the record carries no parseable start time.
func NormalizeSlot(r RawSlot, defaultDuration time.Duration, directory []scheduling.Doctor) (scheduling.Slot, bool) {
	start, ok := parseTime(r.SlotISO, r.Start, r.StartTime, r.Time)
	if !ok {
		return scheduling.Slot{}, false
	}

	duration := defaultDuration
	if r.DurationMinutes > 0 {
		duration = time.Duration(r.DurationMinutes) * time.Minute
	}

	doc := resolveDoctor(r.DoctorID.String(), r.DentistCode, r.DoctorName, directory)

	return scheduling.Slot{
		Doctor:      doc,
		Start:       start,
		Duration:    duration,
		Unavailable: slotUnavailable(r),
	}, true
}

// NormalizeBooking converts an appointment record into a booked block. End
// times are taken from the record when present, otherwise derived from the
// record's duration; scheduling applies the final default for anything else.
func NormalizeBooking(r RawBooking) (scheduling.BookedBlock, bool) {
	start, ok := parseTime(r.Start, r.StartTime)
	if !ok {
		return scheduling.BookedBlock{}, false
	}

	end, endOK := parseTime(r.End, r.EndTime)
	if !endOK && r.DurationMinutes > 0 {
		end = start.Add(time.Duration(r.DurationMinutes) * time.Minute)
	}
	return scheduling.NewBookedBlock(start, end), true
}

// slotUnavailable folds the backend's assorted availability markers into one
// boolean.
func slotUnavailable(r RawSlot) bool {
	if r.Available != nil && !*r.Available {
		return true
	}
	if r.IsBooked != nil && *r.IsBooked {
		return true
	}
	if r.Booked != nil && *r.Booked {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "booked", "unavailable", "blocked", "occupied":
		return true
	}
	return false
}

func resolveDoctor(id, code, name string, directory []scheduling.Doctor) scheduling.Doctor {
	for _, doc := range directory {
		if id != "" && doc.ID == id {
			return doc
		}
		if code != "" && doc.Code == code {
			return doc
		}
		if name != "" && strings.EqualFold(doc.Name, name) {
			return doc
		}
	}
	return scheduling.Doctor{ID: id, Code: code, Name: name}
}

func parseTime(candidates ...string) (time.Time, bool) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
