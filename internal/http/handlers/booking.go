// Package handlers exposes the booking flow as a small JSON API consumed by
// the clinic's web UI.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/novadent/booking-gateway/internal/booking"
	"github.com/novadent/booking-gateway/internal/directory"
	"github.com/novadent/booking-gateway/internal/scheduling"
	"github.com/novadent/booking-gateway/internal/session"
	"github.com/novadent/booking-gateway/pkg/logging"
)

// BookingHandler serves the slot search and OTP handshake endpoints.
type BookingHandler struct {
	search   *booking.SearchService
	flow     *booking.Flow
	dir      *directory.Directory
	allowed  map[int]struct{}
	location *time.Location
	logger   *logging.Logger
}

// Config wires the booking handler.
type Config struct {
	Search    *booking.SearchService
	Flow      *booking.Flow
	Directory *directory.Directory

	// AllowedDurations whitelists appointment lengths in minutes; empty
	// accepts any positive duration.
	AllowedDurations []int
	// Location anchors date parsing to the clinic's timezone; nil means UTC.
	Location *time.Location

	Logger *logging.Logger
}

// NewBookingHandler wires the handler.
func NewBookingHandler(cfg Config) *BookingHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	var allowed map[int]struct{}
	if len(cfg.AllowedDurations) > 0 {
		allowed = make(map[int]struct{}, len(cfg.AllowedDurations))
		for _, d := range cfg.AllowedDurations {
			allowed[d] = struct{}{}
		}
	}
	return &BookingHandler{
		search:   cfg.Search,
		flow:     cfg.Flow,
		dir:      cfg.Directory,
		allowed:  allowed,
		location: loc,
		logger:   logger,
	}
}

type slotDTO struct {
	Start           time.Time         `json:"start"`
	DurationMinutes int               `json:"durationMinutes"`
	Doctor          scheduling.Doctor `json:"doctor"`
}

type searchResponse struct {
	Slots      []slotDTO `json:"slots"`
	Generation uint64    `json:"generation"`
	Fallback   bool      `json:"fallback"`
}

func toSearchResponse(res *booking.Result) searchResponse {
	out := searchResponse{
		Slots:      make([]slotDTO, 0, len(res.Slots)),
		Generation: res.Generation,
		Fallback:   res.Fallback,
	}
	for _, s := range res.Slots {
		out.Slots = append(out.Slots, slotDTO{
			Start:           s.Start,
			DurationMinutes: int(s.Duration / time.Minute),
			Doctor:          s.Doctor,
		})
	}
	return out
}

// ListDoctors returns the dentist directory.
func (h *BookingHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	doctors, err := h.dir.List(r.Context(), sess.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// SearchSlots computes the bookable slots for doctorId/date/duration, with
// an optional specific time-of-day.
func (h *BookingHandler) SearchSlots(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	q := r.URL.Query()
	doctorID := q.Get("doctorId")
	if doctorID == "" {
		writeMessage(w, http.StatusBadRequest, "doctorId is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", q.Get("date"), h.location)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration <= 0 {
		writeMessage(w, http.StatusBadRequest, "duration must be a positive number of minutes")
		return
	}
	if h.allowed != nil {
		if _, ok := h.allowed[duration]; !ok {
			writeMessage(w, http.StatusBadRequest, "duration is not offered by the clinic")
			return
		}
	}

	res, err := h.search.Search(r.Context(), sess, booking.Query{
		DoctorID:        doctorID,
		Date:            date,
		DurationMinutes: duration,
		At:              q.Get("time"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(res))
}

type holdRequest struct {
	DoctorID        string `json:"doctorId"`
	SlotISO         string `json:"slotIso"`
	DurationMinutes int    `json:"durationMinutes"`
	Reason          string `json:"reason"`
}

// HoldSlot pins the patient's slot selection; nothing is reserved upstream.
func (h *BookingHandler) HoldSlot(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.flow.Hold(r.Context(), sess, booking.HoldRequest{
		DoctorID:        req.DoctorID,
		SlotISO:         req.SlotISO,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"holdId": st.HoldID,
		"state":  st.State,
	})
}

type otpSendRequest struct {
	Reason string `json:"reason"`
}

// SendOTP opens the OTP session for the held slot.
func (h *BookingHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	var req otpSendRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	otp, err := h.flow.RequestOTP(r.Context(), sess, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sentPhone": otp.MaskedPhone,
		"expiresAt": otp.ExpiresAt,
		"message":   otp.Message,
	})
}

type otpVerifyRequest struct {
	Code string `json:"code"`
}

// VerifyOTP submits the code. On success the appointment exists upstream; the
// slot search is re-run immediately so the response already reflects the
// newly booked slot, and the UI navigates away.
func (h *BookingHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	var req otpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Capture the held slot before Confirm clears the flow state; the
	// re-run search below needs the doctor and date.
	held, err := h.flow.Current(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.flow.Confirm(r.Context(), sess, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"message":  msg,
		"redirect": "/appointments",
	}
	if held != nil {
		res, searchErr := h.search.Search(r.Context(), sess, booking.Query{
			DoctorID:        held.Slot.Doctor.Key(),
			Date:            held.Slot.Start,
			DurationMinutes: held.Slot.DurationMinutes,
		})
		if searchErr != nil {
			h.logger.Warn("post-confirm slot refresh failed", "error", searchErr)
		} else {
			resp["slots"] = toSearchResponse(res)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
