package model

import (
	"context"
	"time"
)

// ProfileStore defines persistence operations for user profiles.
type ProfileStore interface {
	Create(ctx context.Context, profile Profile) (Profile, error)
	GetByUserID(ctx context.Context, userID int64) (Profile, error)
	UpdateAvatar(ctx context.Context, userID int64, avatar string) error
}

// Profile holds display attributes of a user.
type Profile struct {
	ID        int64
	UserID    int64
	FirstName string
	LastName  string
	Avatar    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileInput carries profile attributes collected at onboarding.
type ProfileInput struct {
	FirstName string
	LastName  string
	Avatar    *string
}
