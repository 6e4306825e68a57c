// ABOUTME: Typed transport errors for the backend client
// ABOUTME: Covers 401 rejection, missing responses and server errors with message extraction

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAuthExpired matches any 401 response via errors.Is
var ErrAuthExpired = errors.New("session expired")

// User-facing messages
const (
	NetworkErrorMessage = "Network error. Please check your connection."
	AuthExpiredMessage  = "Your session has expired. Please log in again."
)

// AuthExpiredError is returned when the backend rejects the request with 401.
type AuthExpiredError struct {
	// Generation is the token generation that was attached to the request
	Generation uint64

	// Response is the rejected response, for callers that read its body
	Response *APIError
}

func (e *AuthExpiredError) Error() string {
	return ErrAuthExpired.Error()
}

// Is reports whether target is ErrAuthExpired.
func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrAuthExpired
}

// Unwrap exposes the underlying API error.
func (e *AuthExpiredError) Unwrap() error {
	if e.Response == nil {
		return nil
	}
	return e.Response
}

// NetworkError means no response was received from the backend.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// Decode unmarshals the error body into v.
func (e *APIError) Decode(v any) error {
	if len(e.Body) == 0 {
		return fmt.Errorf("empty error body")
	}
	return json.Unmarshal(e.Body, v)
}

// fieldErrorOrder lists the field-error keys checked before all others
var fieldErrorOrder = []string{"email", "password", "non_field_errors"}

// Message extracts a human readable message from the body. It checks, in
// order: a plain string body, "detail", "error", "message", then the first
// entry of a field error list such as {"email": ["already taken"]}.
// Returns "" when nothing usable is present.
func (e *APIError) Message() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return ""
	}

	var raw any
	if err := json.Unmarshal(e.Body, &raw); err != nil {
		// Non-JSON text is shown as-is, HTML error pages are not
		if strings.HasPrefix(body, "<") {
			return ""
		}
		return body
	}

	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"detail", "error", "message"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return firstFieldError(v)
	}
	return ""
}

func firstFieldError(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fieldErrorOrder))
	for _, k := range fieldErrorOrder {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(fields))
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		list, ok := fields[k].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if s, ok := list[0].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// UserMessage returns display text for err. Server messages win; fallback
// covers server errors without a usable body and unknown errors.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return NetworkErrorMessage
	}

	if errors.Is(err, ErrAuthExpired) {
		return AuthExpiredMessage
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return fallback
}
