package notesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Authorization errors
// ============================================================================

var (
	// ErrUnauthorized matches every authorization failure that reaches the
	// caller: terminal *AuthError values and 401 responses to anonymous calls.
	ErrUnauthorized = errors.New("notesdk: unauthorized")

	// ErrSessionExpired means credential renewal failed and the session was
	// torn down. A new login is required.
	ErrSessionExpired = errors.New("notesdk: session expired")

	// ErrReplayRejected means the server refused a request again after it was
	// replayed with renewed credentials.
	ErrReplayRejected = errors.New("notesdk: request rejected after credential renewal")

	// ErrNoRefreshToken is the cause of ErrSessionExpired when the session had
	// no refresh token to renew with.
	ErrNoRefreshToken = errors.New("notesdk: no refresh token")

	// ErrSessionChanged is returned to requests that were waiting on a renewal
	// when a login or logout replaced the session underneath them.
	ErrSessionChanged = errors.New("notesdk: session changed during renewal")

	// ErrNotAuthenticated is returned by calls that need a signed-in user.
	ErrNotAuthenticated = errors.New("notesdk: not authenticated")
)

// AuthError is a terminal authorization failure.
type AuthError struct {
	// Op is the step that failed, e.g. "refresh" or "replay".
	Op string

	// Err is one of the sentinel errors above.
	Err error

	// Cause is the underlying failure, if any.
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// Is makes every AuthError match ErrUnauthorized.
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ============================================================================
// API errors
// ============================================================================

var (
	ErrBadRequest  = errors.New("notesdk: bad request")
	ErrForbidden   = errors.New("notesdk: forbidden")
	ErrNotFound    = errors.New("notesdk: not found")
	ErrConflict    = errors.New("notesdk: conflict")
	ErrRateLimited = errors.New("notesdk: rate limited")
	ErrServer      = errors.New("notesdk: server error")
)

// APIError is a non-success response from the API, decoded from the
// standard envelope when possible.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Message is the server's human readable message.
	Message string

	// Fields holds per-field validation messages, when the server sent them.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api error %d: %s %v", e.StatusCode, e.Message, e.Fields)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is maps the status code onto the sentinel errors, so callers can write
// errors.Is(err, notesdk.ErrNotFound).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-success response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message

		// Validation failures carry a field -> message map in data
		var fields map[string]string
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &fields) == nil && len(fields) > 0 {
			apiErr.Fields = fields
		}
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}
