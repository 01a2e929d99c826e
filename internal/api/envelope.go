package api

import (
	"encoding/json"
	"fmt"

	"github.com/nodrake/ndh/internal/shared"
)

// envelope is the wire shape every backend response uses. Successful
// responses carry data, failures carry a human-readable message.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// TokenPair is the credential payload returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Error is a request failure reported by the backend. The message is
// surfaced to the user verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the failure onto a shared sentinel so callers can test error
// classes with errors.Is.
func (e *Error) Unwrap() error {
	switch {
	case e.Status == 401:
		return shared.ErrAuthFailed
	case e.Status >= 500:
		return shared.ErrServiceUnavailable
	default:
		return shared.ErrAPIRequest
	}
}

// decodeEnvelope parses a response body. A parse failure on a non-2xx body
// still yields a usable Error carrying the status.
func decodeEnvelope(status int, body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= 200 && status < 300 {
			return nil, fmt.Errorf("%w: malformed response body", shared.ErrAPIRequest)
		}
		return nil, &Error{Status: status}
	}
	return &env, nil
}
