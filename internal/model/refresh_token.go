package model

import (
	"context"
	"time"
)

// RefreshTokenStore persists refresh tokens. Implementations are scoped to a transaction.
type RefreshTokenStore interface {
	FindByHash(ctx context.Context, hash string) (RefreshToken, error)
	Create(ctx context.Context, token RefreshToken) (RefreshToken, error)
	// MarkRevoked revokes a non-revoked token and reports whether this call changed it.
	MarkRevoked(ctx context.Context, id int64) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]RefreshToken, error)
}

// RefreshToken is a stored refresh token. The raw secret is never persisted.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	Meta      SessionMeta
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
