package model

import "context"

// Tx exposes stores bound to a single datastore transaction.
type Tx interface {
	Users() UserStore
	SocialAccounts() SocialAccountStore
	Profiles() ProfileStore
	RefreshTokens() RefreshTokenStore
}

// Transactor runs fn inside a transaction. A nil result commits, an error or panic rolls back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Datastore is a transactor with non-transactional reads.
type Datastore interface {
	Transactor
	Users() UserStore
	RefreshTokens() RefreshTokenStore
}
