package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// Identity creates and links users, provider accounts and profiles.
// All operations run inside the caller's transaction.
type Identity struct {
	logger *logger.Logger
}

func NewIdentity(logger *logger.Logger) *Identity {
	return &Identity{logger: logger}
}

// OnboardLocalUser creates a user with a password, a local provider link and a profile.
func (i *Identity) OnboardLocalUser(
	ctx context.Context,
	tx model.Tx,
	email string,
	passwordHash string,
	profile model.ProfileInput,
) (model.User, error) {
	return i.onboard(ctx, tx, model.ProviderLocal, email, email, &passwordHash, profile)
}

// FindOrCreateOAuthUser resolves a provider identity to a user. It returns the
// linked user when the provider account is known, links the provider to an
// existing user with the same email, or onboards a new user. The boolean
// reports whether a user was created.
func (i *Identity) FindOrCreateOAuthUser(
	ctx context.Context,
	tx model.Tx,
	provider model.Provider,
	providerUserID string,
	email string,
	profile model.ProfileInput,
) (model.User, bool, error) {
	account, err := tx.SocialAccounts().GetByProvider(ctx, provider, providerUserID)
	switch {
	case err == nil:
		user, err := tx.Users().GetByID(ctx, account.UserID)
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, false, model.NewAuthError(model.ErrUserNotFound)
		}
		if err != nil {
			return model.User{}, false, fmt.Errorf("failed to get linked user: %w", err)
		}
		return user, false, nil
	case !errors.Is(err, model.ErrNotFound):
		return model.User{}, false, fmt.Errorf("failed to get social account: %w", err)
	}

	user, err := tx.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := i.link(ctx, tx, user.ID, provider, providerUserID); err != nil {
			return model.User{}, false, err
		}
		i.logger.Info("Identity service: provider linked to existing user",
			"user_id", user.ID,
			"provider", string(provider))
		return user, false, nil
	case !errors.Is(err, model.ErrNotFound):
		return model.User{}, false, fmt.Errorf("failed to get user by email: %w", err)
	}

	user, err = i.onboard(ctx, tx, provider, providerUserID, email, nil, profile)
	if err != nil {
		return model.User{}, false, err
	}
	return user, true, nil
}

func (i *Identity) onboard(
	ctx context.Context,
	tx model.Tx,
	provider model.Provider,
	providerUserID string,
	email string,
	passwordHash *string,
	profile model.ProfileInput,
) (model.User, error) {
	user, err := tx.Users().Create(ctx, model.User{Email: email, PasswordHash: passwordHash})
	if errors.Is(err, model.ErrDuplicate) {
		return model.User{}, model.NewConflictError(model.ErrEmailTaken)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := i.link(ctx, tx, user.ID, provider, providerUserID); err != nil {
		return model.User{}, err
	}

	_, err = tx.Profiles().Create(ctx, model.Profile{
		UserID:    user.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Avatar:    profile.Avatar,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create profile: %w", err)
	}

	i.logger.Info("Identity service: user onboarded",
		"user_id", user.ID,
		"provider", string(provider))

	return user, nil
}

func (i *Identity) link(ctx context.Context, tx model.Tx, userID int64, provider model.Provider, providerUserID string) error {
	_, err := tx.SocialAccounts().Create(ctx, model.SocialAccount{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	})
	if errors.Is(err, model.ErrDuplicate) {
		return model.NewConflictError(model.ErrProviderAccountTaken)
	}
	if err != nil {
		return fmt.Errorf("failed to create social account: %w", err)
	}
	return nil
}
