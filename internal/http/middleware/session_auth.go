package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/novadent/booking-gateway/internal/session"
)

// SessionAuth validates the patient bearer token and stores the session on
// the request context. Requests without an active session get 401 with a
// login redirect hint instead of an inline error; the booking UI navigates
// rather than displaying a message.
func SessionAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w)
				return
			}
			sess, err := session.FromRequest(secret, r)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message":  "authentication required",
		"redirect": "/login",
	})
}
