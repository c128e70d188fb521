package postgres

import (
	"context"
	"fmt"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	const query = `
        INSERT INTO profiles (user_id, first_name, last_name, avatar)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `

	err := r.db.QueryRow(ctx, query, profile.UserID, profile.FirstName, profile.LastName, profile.Avatar).Scan(
		&profile.ID, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return model.Profile{}, wrapError("create profile", err)
	}

	return profile, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	const query = `
        SELECT id, user_id, first_name, last_name, avatar, created_at, updated_at
        FROM profiles WHERE user_id = $1
    `

	var profile model.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID, &profile.UserID, &profile.FirstName, &profile.LastName, &profile.Avatar,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return model.Profile{}, wrapError("get profile", err)
	}

	return profile, nil
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, userID int64, avatar string) error {
	const query = `UPDATE profiles SET avatar = $2, updated_at = NOW() WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query, userID, avatar)
	if err != nil {
		return wrapError("update avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update avatar: %w", model.ErrNotFound)
	}

	return nil
}
