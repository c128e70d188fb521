package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.Datastore = (*Store)(nil)

// Store opens gorm transactions and hands out transaction-scoped repositories.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in a transaction. A panic inside fn rolls back and is re-raised.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, &txStores{db: gtx})
	})
}

func (s *Store) Users() model.UserStore {
	return NewUserRepository(s.db)
}

func (s *Store) RefreshTokens() model.RefreshTokenStore {
	return NewRefreshTokenRepository(s.db)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txStores struct {
	db *gorm.DB
}

func (t *txStores) Users() model.UserStore { return NewUserRepository(t.db) }
func (t *txStores) SocialAccounts() model.SocialAccountStore {
	return NewSocialAccountRepository(t.db)
}
func (t *txStores) Profiles() model.ProfileStore           { return NewProfileRepository(t.db) }
func (t *txStores) RefreshTokens() model.RefreshTokenStore { return NewRefreshTokenRepository(t.db) }
