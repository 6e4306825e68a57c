// ABOUTME: Error types for login, registration and password recovery
// ABOUTME: Maps transport failures to display text with per-operation fallbacks

package auth

import (
	"errors"

	"github.com/2389/zeeking/internal/client"
)

// Auth errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoBackend    = errors.New("no backend configured")
	ErrNoAccess     = errors.New("no access token received")
)

// Fallback messages used when the server gives no usable text
const (
	msgLoginFailed      = "Invalid email or password"
	msgRegisterFailed   = "Registration failed"
	msgRegistered       = "Registration successful!"
	msgOTPSendFailed    = "Failed to send OTP. Please try again."
	msgOTPSent          = "OTP sent to your email!"
	msgOTPInvalid       = "Invalid or expired OTP"
	msgResetFailed      = "Password reset failed"
	msgReset            = "Password reset successfully!"
	msgFillAllFields    = "Please fill in all fields"
	msgEnterEmail       = "Please enter your email"
	msgPasswordsDiffer  = "Passwords do not match."
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgInvalidOTP       = "Please enter a valid 6-digit OTP"
	msgLoginNoAccess    = "Login failed: No access token received"
	msgRegisterNoAccess = "Registration failed: No tokens received"
	minPasswordLength   = 6
	otpLength           = 6
)

// AuthError is a failed authentication operation with text fit for display.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func invalidInput(op, msg string) *AuthError {
	return &AuthError{Op: op, Message: msg, Err: ErrInvalidInput}
}

// failure wraps a transport error. A 401 on an auth endpoint means bad
// credentials, not an expired session, so only the server text is used.
func failure(op string, err error, fallback string) *AuthError {
	msg := fallback

	var netErr *client.NetworkError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &netErr):
		msg = client.NetworkErrorMessage
	case errors.As(err, &apiErr):
		if m := apiErr.Message(); m != "" {
			msg = m
		}
	}

	return &AuthError{Op: op, Message: msg, Err: err}
}
