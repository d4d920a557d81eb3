// Package clinicapi contains the REST client for the dental clinic backend
// and the adapters that normalize its heterogeneous record shapes.
package clinicapi

import (
	"encoding/json"
	"time"
)

// AvailabilityQuery identifies one slot search against the backend.
type AvailabilityQuery struct {
	DoctorID        string
	Date            time.Time
	DurationMinutes int
	// At restricts the search to a single "15:04" clock time; empty means
	// any time of day.
	At string
}

// RawDoctor is a dentist record as any of the directory endpoints may shape
// it. Field names vary per endpoint; Normalize reconciles them.
type RawDoctor struct {
	ID       json.Number `json:"id"`
	MongoID  string      `json:"_id"`
	DoctorID json.Number `json:"doctorId"`
	UserID   json.Number `json:"userId"`

	Name       string `json:"name"`
	FullName   string `json:"fullName"`
	DoctorName string `json:"doctorName"`

	DentistCode    string `json:"dentistCode"`
	Code           string `json:"code"`
	Specialization string `json:"specialization"`
}

// RawSlot is an availability record as the backend reports it.
type RawSlot struct {
	Start     string `json:"start"`
	StartTime string `json:"startTime"`
	SlotISO   string `json:"slotIso"`
	Time      string `json:"time"`

	DurationMinutes int `json:"durationMinutes"`

	DoctorID    json.Number `json:"doctorId"`
	DentistCode string      `json:"dentistCode"`
	DoctorName  string      `json:"doctorName"`

	// Availability markers; any single one may be present.
	Available *bool  `json:"available"`
	IsBooked  *bool  `json:"isBooked"`
	Booked    *bool  `json:"booked"`
	Status    string `json:"status"`
}

// RawBooking is a confirmed appointment record used to build booked blocks.
type RawBooking struct {
	Start     string `json:"start"`
	StartTime string `json:"startTime"`
	End       string `json:"end"`
	EndTime   string `json:"endTime"`

	DurationMinutes int `json:"durationMinutes"`
}

// SendOTPRequest is the body of POST /appointments/send-otp.
type SendOTPRequest struct {
	SlotISO         string `json:"slotIso"`
	DurationMinutes int    `json:"durationMinutes"`
	DentistCode     string `json:"dentistCode"`
	DoctorID        string `json:"doctorId"`
	DoctorName      string `json:"doctorName"`
	Reason          string `json:"reason"`
}

// SendOTPResponse is the backend's OTP session handle.
type SendOTPResponse struct {
	OTPID     string    `json:"otpId"`
	ExpiresAt time.Time `json:"expiresAt"`
	SentPhone string    `json:"sentPhone"`
	Message   string    `json:"message"`
}

// VerifyOTPRequest is the body of POST /appointments/verify-otp.
type VerifyOTPRequest struct {
	OTPID  string `json:"otpId"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// VerifyOTPResponse confirms appointment creation.
type VerifyOTPResponse struct {
	Message string `json:"message"`
}
