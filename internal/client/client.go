// ABOUTME: resty-based HTTP client for the ZeekingAI backend
// ABOUTME: Attaches bearer tokens, correlates requests and maps failures to typed errors

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/2389/zeeking/internal/config"
)

// RequestIDHeader correlates client and server logs
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies the access token for each request. The generation
// changes whenever the token does, so a 401 can be matched to the
// credential that caused it.
type TokenSource interface {
	AccessToken() (token string, generation uint64)
}

// Client talks to the backend over HTTP.
type Client struct {
	rc     *resty.Client
	tokens TokenSource
	paths  config.PathsConfig
	logger *slog.Logger
}

// New creates a client for the backend described by cfg. tokens may be nil
// for a client that never authenticates.
func New(cfg config.APIConfig, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "zeeking/1.0").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)

	return &Client{
		rc:     rc,
		tokens: tokens,
		paths:  cfg.Paths,
		logger: logger.With("component", "client"),
	}
}

// retryIdempotent retries GETs that failed in transit or with a 5xx.
// Anything else, including every POST and DELETE, is attempted once.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != resty.MethodGet {
		return false
	}
	if err != nil {
		return resp.Request.Context().Err() == nil
	}
	return resp.StatusCode() >= http.StatusInternalServerError
}

// expand fills {id} in a path template.
func expand(path string, id ID) string {
	return strings.ReplaceAll(path, "{id}", url.PathEscape(id.String()))
}

// do executes one request. body is JSON-encoded when non-nil; a successful
// response body is decoded into result when both are non-empty.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var token string
	var generation uint64
	if c.tokens != nil {
		token, generation = c.tokens.AccessToken()
	}

	requestID := uuid.NewString()
	req := c.rc.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return &NetworkError{Err: err}
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode() == http.StatusUnauthorized {
		return &AuthExpiredError{
			Generation: generation,
			Response:   &APIError{Status: resp.StatusCode(), Body: resp.Body()},
		}
	}
	if !resp.IsSuccess() {
		return &APIError{Status: resp.StatusCode(), Body: resp.Body()}
	}

	if result != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), result); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, resty.MethodPost, c.paths.Login, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its token pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, resty.MethodPost, c.paths.Register, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the backend to send a one-time password to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	var resp ForgotPasswordResponse
	if err := c.do(ctx, resty.MethodPost, c.paths.ForgotPassword, forgotPasswordRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP checks a one-time password without consuming it.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.do(ctx, resty.MethodPost, c.paths.VerifyOTP, verifyOTPRequest{Email: email, OTP: otp}, nil)
}

// ResetPassword sets a new password using a verified one-time password.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, resty.MethodPost, c.paths.ResetPassword, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns the account's token usage.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.do(ctx, resty.MethodGet, c.paths.Stats, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations returns the conversation summaries in server order.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var resp []ConversationSummary
	if err := c.do(ctx, resty.MethodGet, c.paths.Conversations, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetConversation returns the full message history of a conversation.
func (c *Client) GetConversation(ctx context.Context, id ID) (*ConversationDetail, error) {
	if id.IsZero() {
		return nil, errors.New("conversation id is required")
	}
	var resp ConversationDetail
	if err := c.do(ctx, resty.MethodGet, expand(c.paths.Conversation, id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id ID) error {
	if id.IsZero() {
		return errors.New("conversation id is required")
	}
	return c.do(ctx, resty.MethodDelete, expand(c.paths.DeleteConversation, id), nil, nil)
}

// Advise sends one user message and returns the assistant reply. A failed
// call returns *APIError whose body decodes into AdviseError.
func (c *Client) Advise(ctx context.Context, req AdviseRequest) (*AdviseResponse, error) {
	var resp AdviseResponse
	if err := c.do(ctx, resty.MethodPost, c.paths.Advise, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
