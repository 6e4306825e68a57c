// ABOUTME: JSON wire types exchanged with the ZeekingAI backend
// ABOUTME: Includes the ID type that accepts numeric or string identifiers

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is an opaque server identifier. The backend may send it as a JSON
// number or a string; numeric IDs are sent back as numbers. The empty ID
// encodes as null.
type ID string

// String returns the ID text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) isNumeric() bool {
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// MarshalJSON encodes numeric IDs as numbers, others as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if id.isNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// TokenPair is the credential pair issued on login and registration.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequest is the body of POST auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST auth/register/.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Tokens  *TokenPair `json:"tokens"`
	Message string     `json:"message,omitempty"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse carries the server message and, in development
// deployments, the OTP itself.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
	OTP     ID     `json:"otp,omitempty"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest is the body of POST auth/reset-password/.
type ResetPasswordRequest struct {
	Email              string `json:"email"`
	OTP                string `json:"otp"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// MessageResponse is a bare {"message": ...} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// Stats is the usage snapshot from GET auth/stats/. Absent fields are nil.
type Stats struct {
	TokensLeft      *int `json:"tokens_left"`
	DailyTokensUsed *int `json:"daily_tokens_used"`
}

// ConversationSummary is one entry of GET chats/.
type ConversationSummary struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryMessage is one stored message of a conversation.
type HistoryMessage struct {
	IsUser  bool   `json:"is_user"`
	Content string `json:"content"`
}

// ConversationDetail is the response of GET chats/{id}/.
type ConversationDetail struct {
	ID       ID               `json:"id,omitempty"`
	Title    string           `json:"title,omitempty"`
	Messages []HistoryMessage `json:"messages"`
}

// AdviseRequest is the body of POST advise/. ChatID is null for a draft.
type AdviseRequest struct {
	Message        string `json:"message"`
	IsFirstMessage bool   `json:"is_first_message"`
	ChatID         ID     `json:"chat_id"`
}

// AdviseResponse is a successful reply.
type AdviseResponse struct {
	Reply           string `json:"reply"`
	TokensLeft      *int   `json:"tokens_left"`
	DailyTokensUsed *int   `json:"daily_tokens_used"`
	ChatID          ID     `json:"chat_id"`
}

// AdviseError is the body of a failed advise call.
type AdviseError struct {
	Error           string `json:"error"`
	TokensLeft      *int   `json:"tokens_left"`
	DailyTokensUsed *int   `json:"daily_tokens_used"`
}
