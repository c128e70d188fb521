package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db DBTX
}

func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// FindByHash locks the matching row until the surrounding transaction ends.
func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token_hash, expires_at, revoked, meta, created_at, updated_at
        FROM refresh_tokens WHERE token_hash = $1 AND deleted_at IS NULL
        FOR UPDATE
    `

	var (
		rt   model.RefreshToken
		meta []byte
	)
	err := r.db.QueryRow(ctx, query, hash).Scan(
		&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &meta, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return model.RefreshToken{}, wrapError("get refresh token by hash", err)
	}
	if err := decodeMeta(meta, &rt.Meta); err != nil {
		return model.RefreshToken{}, err
	}

	return rt, nil
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	const query = `
        INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, meta)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `

	meta, err := json.Marshal(token.Meta)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to encode session meta: %w", err)
	}

	err = r.db.QueryRow(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt, token.Revoked, meta).Scan(
		&token.ID, &token.CreatedAt, &token.UpdatedAt,
	)
	if err != nil {
		return model.RefreshToken{}, wrapError("create refresh token", err)
	}

	return token, nil
}

func (r *RefreshTokenRepository) MarkRevoked(ctx context.Context, id int64) (bool, error) {
	const query = `
        UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW()
        WHERE id = $1 AND revoked = FALSE
    `

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, wrapError("revoke refresh token", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	const query = `
        UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW()
        WHERE user_id = $1 AND revoked = FALSE
    `

	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, wrapError("revoke refresh tokens by user", err)
	}

	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]model.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token_hash, expires_at, revoked, meta, created_at, updated_at
        FROM refresh_tokens
        WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2 AND deleted_at IS NULL
        ORDER BY created_at DESC
    `

	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, wrapError("list refresh tokens", err)
	}
	defer rows.Close()

	var tokens []model.RefreshToken
	for rows.Next() {
		var (
			rt   model.RefreshToken
			meta []byte
		)
		if err := rows.Scan(
			&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &meta, &rt.CreatedAt, &rt.UpdatedAt,
		); err != nil {
			return nil, wrapError("scan refresh token", err)
		}
		if err := decodeMeta(meta, &rt.Meta); err != nil {
			return nil, err
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("iterate refresh tokens", err)
	}

	return tokens, nil
}

func decodeMeta(raw []byte, meta *model.SessionMeta) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, meta); err != nil {
		return fmt.Errorf("failed to decode session meta: %w", err)
	}
	return nil
}
