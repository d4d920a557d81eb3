package clinicapi

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks upstream 401/403 responses. Handlers translate it
// into a login redirect rather than an inline error message.
var ErrUnauthorized = errors.New("clinic API rejected credentials")

// APIError carries a non-2xx upstream response. Message is the backend's own
// message text when one could be decoded, so it can be surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinic API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("clinic API returned %d: %s", e.StatusCode, e.Message)
}

// ServerMessage returns the backend's message text from err when present.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsUnauthorized reports whether err stems from missing or rejected credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
