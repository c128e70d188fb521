package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dtroode/authkeeper/internal/model"
)

type userRow struct {
	ID           int64   `gorm:"primaryKey"`
	Email        string  `gorm:"not null;uniqueIndex:users_email_key,where:deleted_at IS NULL"`
	PasswordHash *string `gorm:"column:password_hash"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type socialAccountRow struct {
	ID             int64  `gorm:"primaryKey"`
	UserID         int64  `gorm:"not null;index"`
	Provider       string `gorm:"not null;uniqueIndex:social_accounts_provider_key,where:deleted_at IS NULL"`
	ProviderUserID string `gorm:"not null;uniqueIndex:social_accounts_provider_key,where:deleted_at IS NULL"`
	CreatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (socialAccountRow) TableName() string { return "social_accounts" }

func (r socialAccountRow) toModel() model.SocialAccount {
	return model.SocialAccount{
		ID:             r.ID,
		UserID:         r.UserID,
		Provider:       model.Provider(r.Provider),
		ProviderUserID: r.ProviderUserID,
		CreatedAt:      r.CreatedAt,
	}
}

type profileRow struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;uniqueIndex"`
	FirstName string `gorm:"not null;default:''"`
	LastName  string `gorm:"not null;default:''"`
	Avatar    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profileRow) TableName() string { return "profiles" }

func (r profileRow) toModel() model.Profile {
	return model.Profile{
		ID:        r.ID,
		UserID:    r.UserID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Avatar:    r.Avatar,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type refreshTokenRow struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	TokenHash string    `gorm:"not null;uniqueIndex:refresh_tokens_token_hash_key,where:deleted_at IS NULL"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null;default:false"`
	Meta      string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (refreshTokenRow) TableName() string { return "refresh_tokens" }

func newRefreshTokenRow(t model.RefreshToken) (refreshTokenRow, error) {
	meta, err := json.Marshal(t.Meta)
	if err != nil {
		return refreshTokenRow{}, fmt.Errorf("failed to encode session meta: %w", err)
	}
	return refreshTokenRow{
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt.UTC(),
		Revoked:   t.Revoked,
		Meta:      string(meta),
	}, nil
}

func (r refreshTokenRow) toModel() (model.RefreshToken, error) {
	t := model.RefreshToken{
		ID:        r.ID,
		UserID:    r.UserID,
		TokenHash: r.TokenHash,
		ExpiresAt: r.ExpiresAt,
		Revoked:   r.Revoked,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Meta != "" {
		if err := json.Unmarshal([]byte(r.Meta), &t.Meta); err != nil {
			return model.RefreshToken{}, fmt.Errorf("failed to decode session meta: %w", err)
		}
	}
	return t, nil
}
