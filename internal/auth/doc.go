// Package auth owns the authentication session of the zeeking client.
//
// # Session Lifecycle
//
// A Session is either Anonymous or Authenticated:
//
//	Anonymous --Login/Register--> Authenticated --Logout/Expire--> Anonymous
//
// The token pair is held in memory and written through to a
// store.TokenStore, keyed by profile (the API base URL), so a session
// survives restarts. Restore loads it at start-up and discards a pair whose
// access token is a JWT past its exp claim. Tokens are opaque otherwise;
// nothing is verified locally.
//
// # Token Generations
//
// Every change of the token pair bumps a generation counter. The session is
// the client.TokenSource, so each request records which generation it
// carried. When the backend answers 401, the caller hands that generation to
// Expire, which clears the session only if the rejected credential is still
// the current one:
//
//	if session.Expire(ctx, expired.Generation) {
//		// first rejection of this credential: reset and send to login
//	}
//
// Concurrent 401s for the same credential therefore trigger the forced
// logout exactly once, and a late 401 for an old credential never logs out
// a freshly authenticated user.
//
// # Password Recovery
//
// Recovery drives the three step reset flow: ForgotPassword sends a
// one-time password, VerifyOTP checks it and ResetPassword sets the new
// password.
//
// # Errors
//
// Every user-facing failure is an *AuthError carrying display text.
// Input problems detected before any request also match ErrInvalidInput.
package auth
