package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/novadent/booking-gateway/internal/booking"
	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/internal/directory"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps the booking error taxonomy onto HTTP responses:
// authentication problems become a login redirect, validation problems are
// rejected before any upstream call, and upstream rejections surface the
// backend's own message text verbatim when one exists.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case clinicapi.IsUnauthorized(err):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"message":  "session expired",
			"redirect": "/login",
		})
	case errors.Is(err, directory.ErrUnknownDoctor):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidCode),
		errors.Is(err, booking.ErrInvalidSlot),
		errors.Is(err, booking.ErrNoSlotHeld),
		errors.Is(err, booking.ErrNoOTPSession):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		var apiErr *clinicapi.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = "the clinic service rejected the request"
			}
			status := apiErr.StatusCode
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			writeMessage(w, status, msg)
			return
		}
		writeMessage(w, http.StatusBadGateway, "clinic service unavailable, please try again")
	}
}
