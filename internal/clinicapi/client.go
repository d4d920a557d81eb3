package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/novadent/booking-gateway/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// bookedBlockPaths are the URL variants the backend has exposed confirmed
// appointments under. They are probed in order; the first 2xx wins.
var bookedBlockPaths = []string{
	"/appointments/booked",
	"/appointments/occupied",
	"/appointments?status=confirmed",
}

// doctorDirectoryPaths are probed in order at directory load; the first
// endpoint returning a non-empty list wins.
var doctorDirectoryPaths = []string{
	"/receptionist/dentists?limit=100",
	"/dentists",
	"/api/dentists",
	"/users?role=doctor",
	"/staff?type=dentist",
}

// Client wraps the REST calls the booking flow makes against the clinic
// backend. Every call forwards the patient's bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

// NewClient constructs a clinic backend REST client.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// GetAvailability asks the backend for authoritative availability for a
// doctor/date/duration. The backend has returned both `{"slots": [...]}`
// and a bare array; both are accepted.
func (c *Client) GetAvailability(ctx context.Context, token string, q AvailabilityQuery) ([]RawSlot, error) {
	params := url.Values{}
	params.Set("doctorId", q.DoctorID)
	params.Set("date", q.Date.Format("2006-01-02"))
	params.Set("duration", fmt.Sprintf("%d", q.DurationMinutes))
	if q.At != "" {
		params.Set("time", q.At)
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodGet, "/appointments/availability?"+params.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	slots, err := decodeList[RawSlot](raw, "slots", "data")
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return slots, nil
}

// ListBookedBlocks fetches confirmed appointments for a doctor/date, probing
// the known URL variants in order.
func (c *Client) ListBookedBlocks(ctx context.Context, token, doctorID string, date time.Time) ([]RawBooking, error) {
	params := url.Values{}
	params.Set("doctorId", doctorID)
	params.Set("date", date.Format("2006-01-02"))

	var lastErr error
	for _, path := range bookedBlockPaths {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}

		var raw json.RawMessage
		err := c.doJSON(ctx, token, http.MethodGet, path+sep+params.Encode(), nil, &raw)
		if err != nil {
			lastErr = err
			continue
		}
		bookings, err := decodeList[RawBooking](raw, "appointments", "data")
		if err != nil {
			lastErr = err
			continue
		}
		return bookings, nil
	}
	return nil, fmt.Errorf("list booked blocks: %w", lastErr)
}

// ListDoctors probes the directory endpoint variants and returns the first
// non-empty dentist list.
func (c *Client) ListDoctors(ctx context.Context, token string) ([]RawDoctor, error) {
	var lastErr error
	for _, path := range doctorDirectoryPaths {
		var raw json.RawMessage
		err := c.doJSON(ctx, token, http.MethodGet, path, nil, &raw)
		if err != nil {
			lastErr = err
			continue
		}
		doctors, err := decodeList[RawDoctor](raw, "dentists", "doctors", "users", "staff", "data")
		if err != nil {
			lastErr = err
			continue
		}
		if len(doctors) > 0 {
			return doctors, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("list doctors: %w", lastErr)
	}
	return nil, fmt.Errorf("list doctors: no directory endpoint returned dentists")
}

// SendOTP opens an OTP session for a held slot.
func (c *Client) SendOTP(ctx context.Context, token string, req SendOTPRequest) (*SendOTPResponse, error) {
	var resp SendOTPResponse
	if err := c.doJSON(ctx, token, http.MethodPost, "/appointments/send-otp", req, &resp); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}
	return &resp, nil
}

// VerifyOTP submits the one-time code; the backend creates the appointment.
func (c *Client) VerifyOTP(ctx context.Context, token string, req VerifyOTPRequest) (*VerifyOTPResponse, error) {
	var resp VerifyOTPResponse
	if err := c.doJSON(ctx, token, http.MethodPost, "/appointments/verify-otp", req, &resp); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, token, method, path string, body, out any) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: extractMessage(respBody)}
		c.logger.Warn("clinic API non-2xx response",
			"status", resp.StatusCode,
			"method", method,
			"path", path,
		)
		return apiErr
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractMessage pulls the backend's own error text out of a failure body so
// it can be shown to the patient verbatim.
func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

// decodeList accepts either a bare JSON array or an object wrapping the array
// under one of the given keys.
func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response shape")
	}
	for _, key := range keys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, fmt.Errorf("decode %q list: %w", key, err)
		}
		return list, nil
	}
	return nil, nil
}
