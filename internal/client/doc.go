// Package client is the HTTP transport to the ZeekingAI backend.
//
// # Overview
//
// Client is a thin request layer over resty. It attaches the current access
// token, tags every request with an X-Request-ID, decodes JSON bodies and
// turns failures into typed errors. It never logs out, navigates or
// otherwise acts on a failure; callers decide what a failure means.
//
// # Authentication
//
// Credentials come from a TokenSource, normally the auth.Session:
//
//	c := client.New(cfg.API, session, logger)
//
// When a token is present it is sent as:
//
//	Authorization: Bearer <access token>
//
// A missing token is not an error; the request goes out unauthenticated.
//
// # Errors
//
// Every method returns one of:
//
//   - *AuthExpiredError (errors.Is(err, ErrAuthExpired)): the backend
//     answered 401. It records the token generation that was attached so
//     the session can tell a stale rejection from a current one.
//   - *NetworkError: no response was received.
//   - *APIError: any other non-2xx response. Message extracts a readable
//     message from the body.
//
// UserMessage maps any of these to text suitable for display.
//
// # Retries
//
// Only GET requests are retried, on network failures and 5xx responses.
// Sends, deletes and auth calls are attempted exactly once.
package client
