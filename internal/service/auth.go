package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// AvatarMirror copies a remote avatar into owned storage.
type AvatarMirror interface {
	Mirror(ctx context.Context, userID int64, sourceURL string) error
}

// Auth implements registration, login and OAuth use cases on top of Identity and Sessions.
type Auth struct {
	store     model.Datastore
	sessions  *Sessions
	identity  *Identity
	hasher    model.PasswordHasher
	limiter   model.LoginLimiter
	avatars   AvatarMirror
	providers map[model.Provider]model.OAuthProvider
	logger    *logger.Logger
}

func NewAuth(
	store model.Datastore,
	sessions *Sessions,
	identity *Identity,
	hasher model.PasswordHasher,
	limiter model.LoginLimiter,
	avatars AvatarMirror,
	logger *logger.Logger,
	providers ...model.OAuthProvider,
) *Auth {
	byName := make(map[model.Provider]model.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Auth{
		store:     store,
		sessions:  sessions,
		identity:  identity,
		hasher:    hasher,
		limiter:   limiter,
		avatars:   avatars,
		providers: byName,
		logger:    logger,
	}
}

// Register creates a local user and opens its first session.
func (a *Auth) Register(ctx context.Context, in model.RegisterInput, meta model.SessionMeta) (model.Session, error) {
	a.logger.Debug("Auth service: starting user registration",
		"email", in.Email)

	exists, err := a.store.Users().ExistsByEmail(ctx, in.Email)
	if err != nil {
		a.logger.Error("Auth service: failed to check email",
			"email", in.Email,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		a.logger.Info("Auth service: user already exists",
			"email", in.Email)
		return model.Session{}, model.NewConflictError(model.ErrEmailTaken)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		a.logger.Error("Auth service: failed to hash password",
			"email", in.Email,
			"error", err.Error())
		return model.Session{}, err
	}

	var session model.Session
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		user, err := a.identity.OnboardLocalUser(ctx, tx, in.Email, hash, model.ProfileInput{
			FirstName: in.FirstName,
			LastName:  in.LastName,
		})
		if err != nil {
			return err
		}

		session, err = a.sessions.Issue(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		a.logger.Error("Auth service: registration failed",
			"email", in.Email,
			"error", err.Error())
		return model.Session{}, err
	}

	a.logger.Info("Auth service: user registered",
		"email", in.Email,
		"user_id", session.UserID)

	return session, nil
}

// Login verifies a password and opens a new session.
func (a *Auth) Login(ctx context.Context, email, password string, meta model.SessionMeta) (model.Session, error) {
	key := limiterKey(email)

	allowed, err := a.limiter.Allow(ctx, key)
	if err != nil {
		a.logger.Warn("Auth service: login limiter unavailable",
			"error", err.Error())
		allowed = true
	}
	if !allowed {
		a.logger.Info("Auth service: login throttled",
			"email", email)
		return model.Session{}, model.NewAuthError(model.ErrTooManyAttempts)
	}

	user, err := a.store.Users().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err != nil || user.PasswordHash == nil {
		return model.Session{}, a.loginFailed(ctx, key, email)
	}

	if err := a.hasher.Compare(*user.PasswordHash, password); err != nil {
		if !errors.Is(err, model.ErrInvalidCredentials) {
			a.logger.Error("Auth service: failed to verify password",
				"email", email,
				"error", err.Error())
			return model.Session{}, err
		}
		return model.Session{}, a.loginFailed(ctx, key, email)
	}

	if err := a.limiter.Reset(ctx, key); err != nil {
		a.logger.Warn("Auth service: failed to reset login limiter",
			"error", err.Error())
	}

	var session model.Session
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		session, err = a.sessions.Issue(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		a.logger.Error("Auth service: failed to issue session",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, err
	}

	a.logger.Info("Auth service: user logged in",
		"user_id", user.ID)

	return session, nil
}

func (a *Auth) loginFailed(ctx context.Context, key, email string) error {
	if err := a.limiter.Fail(ctx, key); err != nil {
		a.logger.Warn("Auth service: failed to record login failure",
			"error", err.Error())
	}
	a.logger.Info("Auth service: invalid credentials",
		"email", email)
	return model.NewAuthError(model.ErrInvalidCredentials)
}

// limiterKey scopes failures to the account. The client address is not part
// of the key, so switching addresses does not open a fresh window.
func limiterKey(email string) string {
	return "account:" + strings.ToLower(strings.TrimSpace(email))
}

// Refresh rotates a refresh token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string, meta model.SessionMeta) (model.Session, error) {
	return a.sessions.Rotate(ctx, refreshToken, meta)
}

// Logout revokes a refresh token. It is a no-op for unknown tokens.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	return a.sessions.Revoke(ctx, refreshToken)
}

func (a *Auth) provider(name model.Provider) (model.OAuthProvider, error) {
	p, ok := a.providers[name]
	if !ok {
		return nil, model.NewValidationError(fmt.Errorf("%w: %q", model.ErrUnknownProvider, string(name)))
	}
	return p, nil
}

// OAuthAuthURL returns the consent page URL of a configured provider.
func (a *Auth) OAuthAuthURL(name model.Provider, state string) (string, error) {
	p, err := a.provider(name)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// OAuthLogin exchanges an authorization code, resolves the user and opens a session.
func (a *Auth) OAuthLogin(ctx context.Context, name model.Provider, code string, meta model.SessionMeta) (model.Session, error) {
	p, err := a.provider(name)
	if err != nil {
		return model.Session{}, err
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		a.logger.Error("Auth service: oauth exchange failed",
			"provider", string(name),
			"error", err.Error())
		return model.Session{}, model.NewAuthError(fmt.Errorf("oauth exchange failed: %w", err))
	}
	if profile.Email == "" {
		return model.Session{}, model.NewAuthError(model.ErrOAuthEmailMissing)
	}

	var (
		session model.Session
		created bool
	)
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		user, isNew, err := a.identity.FindOrCreateOAuthUser(ctx, tx, name, profile.ProviderUserID, profile.Email,
			model.ProfileInput{
				FirstName: profile.FirstName,
				LastName:  profile.LastName,
				Avatar:    profile.Avatar,
			})
		if err != nil {
			return err
		}
		created = isNew

		session, err = a.sessions.Issue(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		a.logger.Error("Auth service: oauth login failed",
			"provider", string(name),
			"error", err.Error())
		return model.Session{}, err
	}

	if created && profile.Avatar != nil && a.avatars != nil {
		if err := a.avatars.Mirror(ctx, session.UserID, *profile.Avatar); err != nil {
			a.logger.Warn("Auth service: failed to mirror avatar",
				"user_id", session.UserID,
				"error", err.Error())
		}
	}

	a.logger.Info("Auth service: oauth login completed",
		"provider", string(name),
		"user_id", session.UserID,
		"created", created)

	return session, nil
}
