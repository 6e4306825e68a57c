// ABOUTME: Password recovery flow: request an OTP, verify it, set a new password
// ABOUTME: Validates input before any request and maps failures to display text

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/zeeking/internal/client"
)

// RecoveryBackend is the subset of the transport used for password recovery.
type RecoveryBackend interface {
	ForgotPassword(ctx context.Context, email string) (*client.ForgotPasswordResponse, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, req client.ResetPasswordRequest) (*client.MessageResponse, error)
}

// OTPRequest is the outcome of ForgotPassword.
type OTPRequest struct {
	Message string

	// OTP is only returned by development backends
	OTP string
}

// Reset holds the fields of the final recovery step.
type Reset struct {
	Email           string
	OTP             string
	NewPassword     string
	ConfirmPassword string
}

// Recovery runs the password reset flow. It does not touch the session.
type Recovery struct {
	backend RecoveryBackend
	logger  *slog.Logger
}

// NewRecovery creates a Recovery using backend.
func NewRecovery(backend RecoveryBackend, logger *slog.Logger) *Recovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recovery{
		backend: backend,
		logger:  logger.With("component", "recovery"),
	}
}

// ForgotPassword asks the backend to send a one-time password to email.
func (r *Recovery) ForgotPassword(ctx context.Context, email string) (*OTPRequest, error) {
	const op = "forgot_password"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalidInput(op, msgEnterEmail)
	}

	resp, err := r.backend.ForgotPassword(ctx, email)
	if err != nil {
		return nil, failure(op, err, msgOTPSendFailed)
	}

	out := &OTPRequest{Message: resp.Message, OTP: resp.OTP.String()}
	if out.Message == "" {
		out.Message = msgOTPSent
	}
	r.logger.Debug("otp requested")
	return out, nil
}

// VerifyOTP checks that otp is valid for email.
func (r *Recovery) VerifyOTP(ctx context.Context, email, otp string) error {
	const op = "verify_otp"

	otp = strings.TrimSpace(otp)
	if !validOTP(otp) {
		return invalidInput(op, msgInvalidOTP)
	}

	if err := r.backend.VerifyOTP(ctx, strings.TrimSpace(email), otp); err != nil {
		return failure(op, err, msgOTPInvalid)
	}
	return nil
}

// ResetPassword sets a new password. Returns the server's confirmation.
func (r *Recovery) ResetPassword(ctx context.Context, req Reset) (string, error) {
	const op = "reset_password"

	switch {
	case req.NewPassword == "" || req.ConfirmPassword == "":
		return "", invalidInput(op, msgFillAllFields)
	case req.NewPassword != req.ConfirmPassword:
		return "", invalidInput(op, msgPasswordsDiffer)
	case len(req.NewPassword) < minPasswordLength:
		return "", invalidInput(op, msgPasswordTooShort)
	}

	resp, err := r.backend.ResetPassword(ctx, client.ResetPasswordRequest{
		Email:              strings.TrimSpace(req.Email),
		OTP:                strings.TrimSpace(req.OTP),
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmPassword,
	})
	if err != nil {
		return "", failure(op, err, msgResetFailed)
	}

	r.logger.Info("password reset")
	if resp.Message != "" {
		return resp.Message, nil
	}
	return msgReset, nil
}

// validOTP reports whether otp is exactly six ASCII digits.
func validOTP(otp string) bool {
	if len(otp) != otpLength {
		return false
	}
	for _, c := range otp {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
