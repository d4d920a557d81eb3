package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/internal/directory"
	"github.com/novadent/booking-gateway/internal/observability/metrics"
	"github.com/novadent/booking-gateway/internal/session"
	"github.com/novadent/booking-gateway/pkg/logging"
)

// otpCodePattern is checked before any network call; malformed codes never
// reach the backend.
var otpCodePattern = regexp.MustCompile(`^\d{6}$`)

var (
	// ErrNoSlotHeld is returned when an OTP step runs without a held slot.
	ErrNoSlotHeld = errors.New("no slot selected")
	// ErrNoOTPSession is returned when a code is submitted without an open
	// OTP session for the currently held slot.
	ErrNoOTPSession = errors.New("no verification code requested")
	// ErrInvalidCode is returned for codes failing the 6-digit format check.
	ErrInvalidCode = errors.New("verification code must be exactly 6 digits")
	// ErrInvalidSlot is returned for hold requests without a usable slot time.
	ErrInvalidSlot = errors.New("slot time is missing or malformed")
)

// Flow runs the two-step OTP booking handshake:
//
//	no slot → slot held → otp requested → confirmed
//
// Holding a slot (any slot, including re-holding) discards in-flight OTP
// state: an OTP session is scoped to exactly one slot selection.
type Flow struct {
	client  *clinicapi.Client
	dir     *directory.Directory
	store   *FlowStore
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewFlow wires the handshake service.
func NewFlow(client *clinicapi.Client, dir *directory.Directory, store *FlowStore, m *metrics.BookingMetrics, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{client: client, dir: dir, store: store, metrics: m, logger: logger}
}

// HoldRequest pins a slot the patient picked from the filtered search output.
type HoldRequest struct {
	DoctorID        string
	SlotISO         string
	DurationMinutes int
	Reason          string
}

// OTPSession is what the caller needs to render the code-entry step.
type OTPSession struct {
	MaskedPhone string
	ExpiresAt   time.Time
	Message     string
}

// Hold pins a slot for the session. Nothing is reserved on the backend; any
// previous handshake progress for this session is discarded.
func (f *Flow) Hold(ctx context.Context, sess session.Session, req HoldRequest) (*FlowState, error) {
	start, err := time.Parse(time.RFC3339, req.SlotISO)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if req.DurationMinutes <= 0 {
		return nil, ErrInvalidSlot
	}

	doc, err := f.dir.Resolve(ctx, sess.Token, req.DoctorID)
	if err != nil {
		return nil, err
	}

	st := FlowState{
		State:  StateSlotHeld,
		HoldID: uuid.NewString(),
		Slot: HeldSlot{
			Doctor:          doc,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Reason:          req.Reason,
		},
	}
	if err := f.store.Put(ctx, sess.ID, st); err != nil {
		return nil, err
	}

	f.logger.Info("slot held",
		"session", sess.ID,
		"doctor", doc.Key(),
		"slot", start.Format(time.RFC3339),
	)
	return &st, nil
}

// RequestOTP opens an OTP session for the held slot. On failure the held
// slot is untouched and the step may be retried.
func (f *Flow) RequestOTP(ctx context.Context, sess session.Session, reason string) (*OTPSession, error) {
	st, err := f.store.Get(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if st == nil || st.State == StateNoSlot {
		return nil, ErrNoSlotHeld
	}

	if reason == "" {
		reason = st.Slot.Reason
	}

	resp, err := f.client.SendOTP(ctx, sess.Token, clinicapi.SendOTPRequest{
		SlotISO:         st.Slot.Start.Format(time.RFC3339),
		DurationMinutes: st.Slot.DurationMinutes,
		DentistCode:     st.Slot.Doctor.Code,
		DoctorID:        st.Slot.Doctor.ID,
		DoctorName:      st.Slot.Doctor.Name,
		Reason:          reason,
	})
	if err != nil {
		f.metrics.ObserveOTP("send", "error")
		return nil, err
	}
	if resp.OTPID == "" {
		f.metrics.ObserveOTP("send", "error")
		return nil, fmt.Errorf("booking: backend returned no OTP session id")
	}

	st.State = StateOTPRequested
	st.OTPID = resp.OTPID
	st.MaskedPhone = resp.SentPhone
	st.OTPExpiresAt = resp.ExpiresAt
	st.Slot.Reason = reason
	if err := f.store.Put(ctx, sess.ID, *st); err != nil {
		return nil, err
	}

	f.metrics.ObserveOTP("send", "ok")
	return &OTPSession{
		MaskedPhone: resp.SentPhone,
		ExpiresAt:   resp.ExpiresAt,
		Message:     resp.Message,
	}, nil
}

// Confirm submits the one-time code. On success the backend has created the
// appointment and all transient handshake state is cleared; the caller
// should re-run the slot search so the newly booked slot disappears.
func (f *Flow) Confirm(ctx context.Context, sess session.Session, code string) (string, error) {
	if !otpCodePattern.MatchString(code) {
		return "", ErrInvalidCode
	}

	st, err := f.store.Get(ctx, sess.ID)
	if err != nil {
		return "", err
	}
	if st == nil || st.State != StateOTPRequested || st.OTPID == "" {
		return "", ErrNoOTPSession
	}

	resp, err := f.client.VerifyOTP(ctx, sess.Token, clinicapi.VerifyOTPRequest{
		OTPID:  st.OTPID,
		Code:   code,
		Reason: st.Slot.Reason,
	})
	if err != nil {
		// Expired or wrong codes are reported by the backend; state stays
		// put so the patient can retry or re-request a code.
		f.metrics.ObserveOTP("verify", "rejected")
		return "", err
	}

	if err := f.store.Clear(ctx, sess.ID); err != nil {
		f.logger.Warn("failed to clear confirmed flow state", "session", sess.ID, "error", err)
	}

	f.metrics.ObserveOTP("verify", "ok")
	f.logger.Info("appointment confirmed",
		"session", sess.ID,
		"doctor", st.Slot.Doctor.Key(),
		"slot", st.Slot.Start.Format(time.RFC3339),
	)
	return resp.Message, nil
}

// Current returns the session's handshake state, nil when none.
func (f *Flow) Current(ctx context.Context, sess session.Session) (*FlowState, error) {
	return f.store.Get(ctx, sess.ID)
}
