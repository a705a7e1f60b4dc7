package domain

import "time"

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user. User and
// session management live outside this service; only tokens cross the
// boundary, so in production the issuing side runs in the auth service and
// this interface is exercised here to mint tokens in tests.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
