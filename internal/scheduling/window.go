package scheduling

import (
	"fmt"
	"time"
)

// Window is the clinic's bookable working window for one calendar day.
// Start and End are wall-clock times in "15:04" form.
type Window struct {
	Start string
	End   string
	Step  time.Duration
}

// DefaultWindow matches the clinic's front-desk hours.
func DefaultWindow() Window {
	return Window{Start: "09:00", End: "18:00", Step: 30 * time.Minute}
}

// Bounds anchors the window to a calendar day in that day's location.
func (w Window) Bounds(date time.Time) (time.Time, time.Time, error) {
	start, err := atClock(date, w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window start: %w", err)
	}
	end, err := atClock(date, w.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window end: %w", err)
	}
	return start, end, nil
}

// Candidates generates candidate slots for a doctor on one day.
//
// With at == "", slots step every w.Step across the window such that
// start+duration never passes the window end. With a specific clock time,
// exactly one candidate is produced if it fits the window, none otherwise.
func (w Window) Candidates(doc Doctor, date time.Time, duration time.Duration, at string) ([]Slot, error) {
	dayStart, dayEnd, err := w.Bounds(date)
	if err != nil {
		return nil, err
	}

	if at != "" {
		start, err := atClock(date, at)
		if err != nil {
			return nil, fmt.Errorf("requested time: %w", err)
		}
		if start.Before(dayStart) || start.Add(duration).After(dayEnd) {
			return nil, nil
		}
		return []Slot{{Doctor: doc, Start: start, Duration: duration}}, nil
	}

	var slots []Slot
	for cur := dayStart; !cur.Add(duration).After(dayEnd); cur = cur.Add(w.Step) {
		slots = append(slots, Slot{Doctor: doc, Start: cur, Duration: duration})
	}
	return slots, nil
}

// atClock places an "15:04" wall-clock time onto date's calendar day.
func atClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", clock, err)
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0,
		date.Location(),
	), nil
}
