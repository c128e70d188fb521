package model

import "context"

// OAuthProfile is a provider profile normalized across providers.
type OAuthProfile struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	Avatar         *string
}

// OAuthProvider exchanges authorization codes for verified profiles.
type OAuthProvider interface {
	Name() Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (OAuthProfile, error)
}
