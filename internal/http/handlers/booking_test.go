package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novadent/booking-gateway/internal/booking"
	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/internal/directory"
	"github.com/novadent/booking-gateway/internal/scheduling"
	"github.com/novadent/booking-gateway/internal/session"
	"github.com/novadent/booking-gateway/pkg/logging"
)

var testSession = session.Session{ID: "patient-42", Token: "tok"}

// clinicBackend is a scripted stand-in for the clinic REST API.
func clinicBackend(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/receptionist/dentists":
			_, _ = w.Write([]byte(`{"dentists":[{"id":1,"name":"Dr. Smith","dentistCode":"DEN-01"}]}`))
		case "/appointments/availability":
			_, _ = w.Write([]byte(`{"slots":[{"startTime":"2026-09-14T10:00:00Z","durationMinutes":30,"dentistCode":"DEN-01"}]}`))
		case "/appointments/booked":
			_, _ = w.Write([]byte(`[]`))
		case "/appointments/send-otp":
			_, _ = w.Write([]byte(`{"otpId":"otp-1","expiresAt":"2026-09-14T10:05:00Z","sentPhone":"+1•••••1234","message":"code sent"}`))
		case "/appointments/verify-otp":
			var req clinicapi.VerifyOTPRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Code != "123456" {
				http.Error(w, `{"message":"incorrect code"}`, http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"message":"appointment confirmed"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newHandler(t *testing.T) *BookingHandler {
	t.Helper()
	ts := clinicBackend(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := clinicapi.NewClient(ts.URL, 0, logging.Default())
	dir := directory.New(client, redisClient, time.Minute, logging.Default())
	store, err := booking.NewFlowStore(redisClient, 15*time.Minute, 5*time.Minute)
	require.NoError(t, err)

	search := booking.NewSearchService(client, dir, scheduling.DefaultWindow(), nil, logging.Default())
	flow := booking.NewFlow(client, dir, store, nil, logging.Default())
	return NewBookingHandler(Config{
		Search:           search,
		Flow:             flow,
		Directory:        dir,
		AllowedDurations: []int{15, 30, 45, 60},
		Logger:           logging.Default(),
	})
}

func doRequest(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r = r.WithContext(session.NewContext(r.Context(), testSession))
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestListDoctors(t *testing.T) {
	h := newHandler(t)
	w := doRequest(h.ListDoctors, "GET", "/api/booking/doctors", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Doctors []scheduling.Doctor `json:"doctors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Doctors, 1)
	assert.Equal(t, "Dr. Smith", body.Doctors[0].Name)
}

func TestSearchSlots(t *testing.T) {
	h := newHandler(t)
	w := doRequest(h.SearchSlots, "GET", "/api/booking/slots?doctorId=1&date=2026-09-14&duration=30", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Slots, 1)
	assert.Equal(t, 30, body.Slots[0].DurationMinutes)
	assert.False(t, body.Fallback)
	assert.NotZero(t, body.Generation)
}

func TestSearchSlotsValidation(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing doctor", "/api/booking/slots?date=2026-09-14&duration=30"},
		{"bad date", "/api/booking/slots?doctorId=1&date=tomorrow&duration=30"},
		{"bad duration", "/api/booking/slots?doctorId=1&date=2026-09-14&duration=soon"},
		{"negative duration", "/api/booking/slots?doctorId=1&date=2026-09-14&duration=-30"},
		{"duration not offered", "/api/booking/slots?doctorId=1&date=2026-09-14&duration=25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h.SearchSlots, "GET", tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchSlotsUnknownDoctor(t *testing.T) {
	h := newHandler(t)
	w := doRequest(h.SearchSlots, "GET", "/api/booking/slots?doctorId=999&date=2026-09-14&duration=30", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHoldThenOTPFlow(t *testing.T) {
	h := newHandler(t)

	w := doRequest(h.HoldSlot, "POST", "/api/booking/hold",
		`{"doctorId":"1","slotIso":"2026-09-14T10:00:00Z","durationMinutes":30,"reason":"checkup"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var hold struct {
		HoldID string `json:"holdId"`
		State  string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hold))
	assert.Equal(t, "slot_held", hold.State)
	assert.NotEmpty(t, hold.HoldID)

	w = doRequest(h.SendOTP, "POST", "/api/booking/otp/send", `{"reason":"checkup"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var sent struct {
		SentPhone string `json:"sentPhone"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.NotEmpty(t, sent.SentPhone)

	w = doRequest(h.VerifyOTP, "POST", "/api/booking/otp/verify", `{"code":"123456"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed struct {
		Message  string          `json:"message"`
		Redirect string          `json:"redirect"`
		Slots    *searchResponse `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
	assert.Equal(t, "appointment confirmed", confirmed.Message)
	assert.Equal(t, "/appointments", confirmed.Redirect)
	require.NotNil(t, confirmed.Slots, "the slot search is re-run after confirmation")
}

func TestSendOTPWithoutHold(t *testing.T) {
	h := newHandler(t)
	w := doRequest(h.SendOTP, "POST", "/api/booking/otp/send", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTPMalformedCode(t *testing.T) {
	h := newHandler(t)

	doRequest(h.HoldSlot, "POST", "/api/booking/hold",
		`{"doctorId":"1","slotIso":"2026-09-14T10:00:00Z","durationMinutes":30}`)
	doRequest(h.SendOTP, "POST", "/api/booking/otp/send", `{}`)

	for _, code := range []string{"12a45", "1234"} {
		w := doRequest(h.VerifyOTP, "POST", "/api/booking/otp/verify", `{"code":"`+code+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, "code %q", code)
	}
}

func TestVerifyOTPWrongCodeSurfacesServerMessage(t *testing.T) {
	h := newHandler(t)

	doRequest(h.HoldSlot, "POST", "/api/booking/hold",
		`{"doctorId":"1","slotIso":"2026-09-14T10:00:00Z","durationMinutes":30}`)
	doRequest(h.SendOTP, "POST", "/api/booking/otp/send", `{}`)

	w := doRequest(h.VerifyOTP, "POST", "/api/booking/otp/verify", `{"code":"654321"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "incorrect code", body["message"])
}

func TestHoldValidation(t *testing.T) {
	h := newHandler(t)

	w := doRequest(h.HoldSlot, "POST", "/api/booking/hold", `{"doctorId":"1","slotIso":"garbage","durationMinutes":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(h.HoldSlot, "POST", "/api/booking/hold", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
