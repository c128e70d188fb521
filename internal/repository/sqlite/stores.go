package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dtroode/authkeeper/internal/model"
)

var (
	_ model.UserStore          = (*UserRepository)(nil)
	_ model.SocialAccountStore = (*SocialAccountRepository)(nil)
	_ model.ProfileStore       = (*ProfileRepository)(nil)
	_ model.RefreshTokenStore  = (*RefreshTokenRepository)(nil)
)

type UserRepository struct {
	rows  *Repository[userRow]
	links *Repository[socialAccountRow]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		rows:  NewRepository[userRow](db),
		links: NewRepository[socialAccountRow](db),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	row, err := r.rows.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row, err := r.rows.GetOne(ctx, Where("email = ?", email))
	if err != nil {
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.rows.Exists(ctx, Where("email = ?", email))
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	row := userRow{Email: user.Email, PasswordHash: user.PasswordHash}
	if err := r.rows.Create(ctx, &row); err != nil {
		return model.User{}, err
	}
	return row.toModel(), nil
}

// Delete soft-deletes a user and its provider links. Run it inside WithinTx to keep both atomic.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.rows.DeleteMany(ctx, Where("id = ?", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	if _, err := r.links.DeleteMany(ctx, Where("user_id = ?", id)); err != nil {
		return err
	}
	return nil
}

type SocialAccountRepository struct {
	rows *Repository[socialAccountRow]
}

func NewSocialAccountRepository(db *gorm.DB) *SocialAccountRepository {
	return &SocialAccountRepository{rows: NewRepository[socialAccountRow](db)}
}

func (r *SocialAccountRepository) GetByProvider(ctx context.Context, provider model.Provider, providerUserID string) (model.SocialAccount, error) {
	row, err := r.rows.GetOne(ctx, Where("provider = ? AND provider_user_id = ?", string(provider), providerUserID))
	if err != nil {
		return model.SocialAccount{}, err
	}
	return row.toModel(), nil
}

func (r *SocialAccountRepository) Create(ctx context.Context, account model.SocialAccount) (model.SocialAccount, error) {
	row := socialAccountRow{
		UserID:         account.UserID,
		Provider:       string(account.Provider),
		ProviderUserID: account.ProviderUserID,
	}
	if err := r.rows.Create(ctx, &row); err != nil {
		return model.SocialAccount{}, err
	}
	return row.toModel(), nil
}

type ProfileRepository struct {
	rows *Repository[profileRow]
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{rows: NewRepository[profileRow](db)}
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	row := profileRow{
		UserID:    profile.UserID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Avatar:    profile.Avatar,
	}
	if err := r.rows.Create(ctx, &row); err != nil {
		return model.Profile{}, err
	}
	return row.toModel(), nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	row, err := r.rows.GetOne(ctx, Where("user_id = ?", userID))
	if err != nil {
		return model.Profile{}, err
	}
	return row.toModel(), nil
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, userID int64, avatar string) error {
	n, err := r.rows.UpdateMany(ctx, map[string]any{"avatar": avatar}, Where("user_id = ?", userID))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("failed to update avatar: %w", model.ErrNotFound)
	}
	return nil
}

type RefreshTokenRepository struct {
	rows *Repository[refreshTokenRow]
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{rows: NewRepository[refreshTokenRow](db)}
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	row, err := r.rows.GetOne(ctx, Where("token_hash = ?", hash))
	if err != nil {
		return model.RefreshToken{}, err
	}
	return row.toModel()
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	row, err := newRefreshTokenRow(token)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if err := r.rows.Create(ctx, &row); err != nil {
		return model.RefreshToken{}, err
	}
	return row.toModel()
}

func (r *RefreshTokenRepository) MarkRevoked(ctx context.Context, id int64) (bool, error) {
	n, err := r.rows.UpdateMany(ctx, map[string]any{"revoked": true}, Where("id = ? AND revoked = ?", id, false))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	return r.rows.UpdateMany(ctx, map[string]any{"revoked": true}, Where("user_id = ? AND revoked = ?", userID, false))
}

func (r *RefreshTokenRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]model.RefreshToken, error) {
	rows, err := r.rows.GetMany(ctx,
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now.UTC()),
		OrderBy("created_at DESC, id DESC"),
	)
	if err != nil {
		return nil, err
	}

	tokens := make([]model.RefreshToken, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
