package model

import "time"

// TokenManager issues and validates access tokens.
type TokenManager interface {
	IssueAccessToken(claims AccessClaims) (AccessToken, error)
	ParseAccessToken(token string) (AccessClaims, error)
}

// AccessClaims identifies the bearer of an access token.
type AccessClaims struct {
	UserID    int64
	Email     string
	ExpiresAt time.Time
}

// AccessToken is a signed access token with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}
