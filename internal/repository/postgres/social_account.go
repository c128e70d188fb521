package postgres

import (
	"context"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.SocialAccountStore = (*SocialAccountRepository)(nil)

type SocialAccountRepository struct {
	db DBTX
}

func NewSocialAccountRepository(db DBTX) *SocialAccountRepository {
	return &SocialAccountRepository{db: db}
}

func (r *SocialAccountRepository) GetByProvider(ctx context.Context, provider model.Provider, providerUserID string) (model.SocialAccount, error) {
	const query = `
        SELECT id, user_id, provider, provider_user_id, created_at
        FROM social_accounts WHERE provider = $1 AND provider_user_id = $2 AND deleted_at IS NULL
    `

	var (
		account model.SocialAccount
		p       string
	)
	err := r.db.QueryRow(ctx, query, string(provider), providerUserID).Scan(
		&account.ID, &account.UserID, &p, &account.ProviderUserID, &account.CreatedAt,
	)
	if err != nil {
		return model.SocialAccount{}, wrapError("get social account", err)
	}
	account.Provider = model.Provider(p)

	return account, nil
}

func (r *SocialAccountRepository) Create(ctx context.Context, account model.SocialAccount) (model.SocialAccount, error) {
	const query = `
        INSERT INTO social_accounts (user_id, provider, provider_user_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `

	err := r.db.QueryRow(ctx, query, account.UserID, string(account.Provider), account.ProviderUserID).Scan(
		&account.ID, &account.CreatedAt,
	)
	if err != nil {
		return model.SocialAccount{}, wrapError("create social account", err)
	}

	return account, nil
}
