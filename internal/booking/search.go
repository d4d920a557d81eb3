// Package booking orchestrates slot searches against the clinic backend and
// the OTP handshake that turns a held slot into a confirmed appointment.
package booking

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/internal/directory"
	"github.com/novadent/booking-gateway/internal/observability/metrics"
	"github.com/novadent/booking-gateway/internal/scheduling"
	"github.com/novadent/booking-gateway/internal/session"
	"github.com/novadent/booking-gateway/pkg/logging"
)

// Query is one slot search: doctor, day, duration, optional clock time.
type Query struct {
	DoctorID        string
	Date            time.Time
	DurationMinutes int
	// At restricts the search to a single "15:04" time; empty means any.
	At string
}

// Result is a filtered slot list plus the generation it was computed under.
// A result is stale when a newer search has started since; stale results
// must not overwrite newer selections.
type Result struct {
	Slots      []scheduling.Slot `json:"slots"`
	Generation uint64            `json:"generation"`
	// Fallback is set when the backend availability call failed or returned
	// nothing usable and the slots were generated locally.
	Fallback bool `json:"fallback"`
}

// SearchService computes bookable slots for a doctor/date/duration.
type SearchService struct {
	client  *clinicapi.Client
	dir     *directory.Directory
	window  scheduling.Window
	metrics *metrics.BookingMetrics
	logger  *logging.Logger

	generation atomic.Uint64
	now        func() time.Time
}

// NewSearchService wires the search path.
func NewSearchService(client *clinicapi.Client, dir *directory.Directory, window scheduling.Window, m *metrics.BookingMetrics, logger *logging.Logger) *SearchService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SearchService{
		client:  client,
		dir:     dir,
		window:  window,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Search resolves the doctor, merges backend availability with locally
// generated candidates, and filters the result.
//
// The backend's availability answer is authoritative when present. When the
// call fails or yields nothing usable the search degrades silently to the
// generated candidate set; both paths pass through the same filter.
func (s *SearchService) Search(ctx context.Context, sess session.Session, q Query) (*Result, error) {
	gen := s.generation.Add(1)
	started := s.now()
	defer func() {
		s.metrics.ObserveSearchLatency(time.Since(started).Seconds())
	}()

	doc, err := s.dir.Resolve(ctx, sess.Token, q.DoctorID)
	if err != nil {
		return nil, err
	}
	duration := time.Duration(q.DurationMinutes) * time.Minute

	slots, fallback, err := s.collect(ctx, sess.Token, doc, q, duration)
	if err != nil {
		return nil, err
	}

	blocks := s.bookedBlocks(ctx, sess.Token, doc, q.Date)

	filtered := scheduling.Filter(s.now(), slots, blocks)
	if fallback {
		s.metrics.ObserveFallback()
	}

	return &Result{Slots: filtered, Generation: gen, Fallback: fallback}, nil
}

// Stale reports whether a result's generation has been superseded by a newer
// search.
func (s *SearchService) Stale(r *Result) bool {
	return r == nil || r.Generation != s.generation.Load()
}

// collect returns the pre-filter slot set: backend availability when usable,
// locally generated candidates otherwise.
func (s *SearchService) collect(ctx context.Context, token string, doc scheduling.Doctor, q Query, duration time.Duration) ([]scheduling.Slot, bool, error) {
	raw, err := s.client.GetAvailability(ctx, token, clinicapi.AvailabilityQuery{
		DoctorID:        doc.Key(),
		Date:            q.Date,
		DurationMinutes: q.DurationMinutes,
		At:              q.At,
	})
	switch {
	case clinicapi.IsUnauthorized(err):
		// Auth problems must surface as a login redirect, never as an
		// empty-but-plausible slot list.
		return nil, false, err
	case err != nil:
		s.metrics.ObserveUpstream("availability", "error")
		s.logger.Warn("availability fetch failed, using generated slots", "error", err)
	default:
		s.metrics.ObserveUpstream("availability", "ok")
	}

	if err == nil && len(raw) > 0 {
		dir, dirErr := s.dir.List(ctx, token)
		if dirErr != nil {
			dir = nil
		}
		slots := make([]scheduling.Slot, 0, len(raw))
		for _, r := range raw {
			slot, ok := clinicapi.NormalizeSlot(r, duration, dir)
			if !ok {
				continue
			}
			if slot.Doctor.Key() == "" {
				slot.Doctor = doc
			}
			slots = append(slots, slot)
		}
		if len(slots) > 0 {
			return slots, false, nil
		}
	}

	candidates, genErr := s.window.Candidates(doc, q.Date, duration, q.At)
	if genErr != nil {
		return nil, false, genErr
	}
	return candidates, true, nil
}

// bookedBlocks fetches confirmed appointments for the doctor/date. Failures
// degrade to an empty block list; the backend re-checks conflicts at
// confirmation time anyway.
func (s *SearchService) bookedBlocks(ctx context.Context, token string, doc scheduling.Doctor, date time.Time) []scheduling.BookedBlock {
	raw, err := s.client.ListBookedBlocks(ctx, token, doc.Key(), date)
	if err != nil {
		s.metrics.ObserveUpstream("booked_blocks", "error")
		s.logger.Warn("booked blocks fetch failed", "doctor", doc.Key(), "error", err)
		return nil
	}
	s.metrics.ObserveUpstream("booked_blocks", "ok")

	blocks := make([]scheduling.BookedBlock, 0, len(raw))
	for _, r := range raw {
		if block, ok := clinicapi.NormalizeBooking(r); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
