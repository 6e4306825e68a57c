// ABOUTME: Local expiry check for JWT access tokens
// ABOUTME: Reads the exp claim without verifying the signature; opaque tokens never expire locally

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessExpired reports whether token is a JWT whose exp claim is at or
// before now. Tokens that are not JWTs, or carry no exp, are not expired;
// the backend remains the authority for those.
func accessExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}
