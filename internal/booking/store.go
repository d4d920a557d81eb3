package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/novadent/booking-gateway/internal/scheduling"
)

const flowKeyPrefix = "booking_flow:"

// State names one stage of the OTP booking handshake.
type State string

const (
	StateNoSlot       State = "no_slot"
	StateSlotHeld     State = "slot_held"
	StateOTPRequested State = "otp_requested"
)

// HeldSlot is the slot currently pinned by a patient session. Holding is
// purely client-side selection; nothing is reserved on the backend.
type HeldSlot struct {
	Doctor          scheduling.Doctor `json:"doctor"`
	Start           time.Time         `json:"start"`
	DurationMinutes int               `json:"durationMinutes"`
	Reason          string            `json:"reason,omitempty"`
}

// FlowState is the transient per-session handshake state. It is cleared on
// confirmation and whenever a different slot is held.
type FlowState struct {
	State  State    `json:"state"`
	HoldID string   `json:"holdId"`
	Slot   HeldSlot `json:"slot"`

	// OTP session fields, set only in StateOTPRequested.
	OTPID        string    `json:"otpId,omitempty"`
	MaskedPhone  string    `json:"maskedPhone,omitempty"`
	OTPExpiresAt time.Time `json:"otpExpiresAt,omitzero"`
}

// FlowStore keeps handshake state in Redis, keyed by session ID. Flow state
// is load-bearing, so unlike caches the store requires a live client.
type FlowStore struct {
	redis   *redis.Client
	tracer  trace.Tracer
	holdTTL time.Duration
	otpTTL  time.Duration
}

// NewFlowStore creates the store. holdTTL bounds how long a held slot
// survives without progress; otpTTL bounds an open OTP session, which the
// backend expires on a shorter clock anyway. otpTTL <= 0 reuses holdTTL.
func NewFlowStore(redisClient *redis.Client, holdTTL, otpTTL time.Duration) (*FlowStore, error) {
	if redisClient == nil {
		return nil, errors.New("booking: flow store requires a redis client")
	}
	if otpTTL <= 0 {
		otpTTL = holdTTL
	}
	return &FlowStore{
		redis:   redisClient,
		tracer:  otel.Tracer("novadent.internal.booking.flow_store"),
		holdTTL: holdTTL,
		otpTTL:  otpTTL,
	}, nil
}

// Get loads the handshake state for a session, nil when none exists.
func (s *FlowStore) Get(ctx context.Context, sessionID string) (*FlowState, error) {
	if sessionID == "" {
		return nil, errors.New("booking: session ID required")
	}

	ctx, span := s.tracer.Start(ctx, "booking.flow_store.get")
	defer span.End()

	data, err := s.redis.Get(ctx, flowKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load flow state: %w", err)
	}

	var st FlowState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("booking: decode flow state: %w", err)
	}
	return &st, nil
}

// Put replaces the handshake state for a session.
func (s *FlowStore) Put(ctx context.Context, sessionID string, st FlowState) error {
	if sessionID == "" {
		return errors.New("booking: session ID required")
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("booking: marshal flow state: %w", err)
	}

	ttl := s.holdTTL
	if st.State == StateOTPRequested {
		ttl = s.otpTTL
	}

	ctx, span := s.tracer.Start(ctx, "booking.flow_store.put")
	defer span.End()

	if err := s.redis.Set(ctx, flowKey(sessionID), data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: store flow state: %w", err)
	}
	return nil
}

// Clear removes all transient handshake state for a session.
func (s *FlowStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("booking: session ID required")
	}

	ctx, span := s.tracer.Start(ctx, "booking.flow_store.clear")
	defer span.End()

	if err := s.redis.Del(ctx, flowKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: clear flow state: %w", err)
	}
	return nil
}

func flowKey(sessionID string) string {
	return flowKeyPrefix + sessionID
}
