package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.Datastore = (*Store)(nil)

// Store opens transactions and hands out transaction-scoped repositories.
type Store struct {
	db TxBeginner
}

func NewStore(db TxBeginner) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in a transaction. It commits when fn returns nil and rolls back otherwise.
// A panic inside fn rolls back and is re-raised.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, newTxStores(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) Users() model.UserStore {
	return NewUserRepository(s.db)
}

func (s *Store) RefreshTokens() model.RefreshTokenStore {
	return NewRefreshTokenRepository(s.db)
}

type txStores struct {
	users          *UserRepository
	socialAccounts *SocialAccountRepository
	profiles       *ProfileRepository
	refreshTokens  *RefreshTokenRepository
}

func newTxStores(tx DBTX) *txStores {
	return &txStores{
		users:          NewUserRepository(tx),
		socialAccounts: NewSocialAccountRepository(tx),
		profiles:       NewProfileRepository(tx),
		refreshTokens:  NewRefreshTokenRepository(tx),
	}
}

func (t *txStores) Users() model.UserStore                   { return t.users }
func (t *txStores) SocialAccounts() model.SocialAccountStore { return t.socialAccounts }
func (t *txStores) Profiles() model.ProfileStore             { return t.profiles }
func (t *txStores) RefreshTokens() model.RefreshTokenStore   { return t.refreshTokens }
