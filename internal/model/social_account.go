package model

import (
	"context"
	"fmt"
	"time"
)

// Provider identifies an identity provider.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// ParseProvider returns the OAuth provider named by s. Local is not an OAuth provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGoogle, ProviderGitHub:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// SocialAccountStore defines persistence operations for provider links.
type SocialAccountStore interface {
	GetByProvider(ctx context.Context, provider Provider, providerUserID string) (SocialAccount, error)
	Create(ctx context.Context, account SocialAccount) (SocialAccount, error)
}

// SocialAccount links a user to an identity provider.
type SocialAccount struct {
	ID             int64
	UserID         int64
	Provider       Provider
	ProviderUserID string
	CreatedAt      time.Time
}
