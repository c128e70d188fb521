package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/token"
)

// Sessions issues, rotates and revokes refresh-token backed sessions.
//
// A refresh token is single-use. Presenting a token that was already consumed
// is treated as theft: every session of the owner is revoked and the revocation
// is committed before the error is returned.
type Sessions struct {
	store      model.Datastore
	tokens     model.TokenManager
	events     model.EventPublisher
	metrics    model.SessionMetrics
	refreshTTL time.Duration
	logger     *logger.Logger

	now       func() time.Time
	newSecret func() (string, error)
}

func NewSessions(
	store model.Datastore,
	tokens model.TokenManager,
	events model.EventPublisher,
	metrics model.SessionMetrics,
	refreshTTL time.Duration,
	logger *logger.Logger,
) *Sessions {
	return &Sessions{
		store:      store,
		tokens:     tokens,
		events:     events,
		metrics:    metrics,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
		newSecret:  token.GenerateOpaqueSecret,
	}
}

// Issue creates a new refresh token for user inside tx and signs a matching access token.
func (s *Sessions) Issue(ctx context.Context, tx model.Tx, user model.User, meta model.SessionMeta) (model.Session, error) {
	secret, err := s.newSecret()
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.refreshTTL)
	_, err = tx.RefreshTokens().Create(ctx, model.RefreshToken{
		UserID:    user.ID,
		TokenHash: token.HashSecret(secret),
		ExpiresAt: expiresAt,
		Meta:      meta,
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(model.AccessClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.metrics.SessionIssued()

	return model.Session{
		UserID:                user.ID,
		AccessToken:           access.Token,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          secret,
		RefreshTokenExpiresAt: expiresAt,
	}, nil
}

type reuse struct {
	userID  int64
	revoked int64
}

// Rotate consumes the presented refresh token and issues a replacement session.
func (s *Sessions) Rotate(ctx context.Context, secret string, meta model.SessionMeta) (model.Session, error) {
	if secret == "" {
		return model.Session{}, model.NewAuthError(model.ErrRefreshTokenMissing)
	}

	var (
		session  model.Session
		outcome  error
		detected *reuse
		expired  bool
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		tokens := tx.RefreshTokens()

		rt, err := tokens.FindByHash(ctx, token.HashSecret(secret))
		if errors.Is(err, model.ErrNotFound) {
			outcome = model.NewAuthError(model.ErrRefreshTokenInvalid)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find refresh token: %w", err)
		}

		// Reuse wins over expiry: a revoked token was consumed before.
		if rt.Revoked {
			detected, err = s.revokeAll(ctx, tx, rt.UserID)
			if err != nil {
				return err
			}
			outcome = model.NewSecurityError(model.ErrRefreshTokenReused)
			return nil
		}

		if !rt.ExpiresAt.After(s.now()) {
			if _, err := tokens.MarkRevoked(ctx, rt.ID); err != nil {
				return fmt.Errorf("failed to revoke expired refresh token: %w", err)
			}
			expired = true
			outcome = model.NewAuthError(model.ErrRefreshTokenExpired)
			return nil
		}

		user, err := tx.Users().GetByID(ctx, rt.UserID)
		if errors.Is(err, model.ErrNotFound) {
			if _, err := tokens.MarkRevoked(ctx, rt.ID); err != nil {
				return fmt.Errorf("failed to revoke orphaned refresh token: %w", err)
			}
			outcome = model.NewAuthError(model.ErrUserNotFound)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		consumed, err := tokens.MarkRevoked(ctx, rt.ID)
		if err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if !consumed {
			// A concurrent rotation consumed the token first.
			detected, err = s.revokeAll(ctx, tx, rt.UserID)
			if err != nil {
				return err
			}
			outcome = model.NewSecurityError(model.ErrRefreshTokenReused)
			return nil
		}

		session, err = s.Issue(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		s.logger.Error("Session service: failed to rotate refresh token",
			"error", err.Error())
		return model.Session{}, err
	}

	if detected != nil {
		s.reportReuse(ctx, *detected, meta)
	}
	if expired {
		s.metrics.SessionExpired()
	}
	if outcome != nil {
		return model.Session{}, outcome
	}

	s.metrics.SessionRotated()
	s.logger.Debug("Session service: refresh token rotated",
		"user_id", session.UserID)

	return session, nil
}

func (s *Sessions) revokeAll(ctx context.Context, tx model.Tx, userID int64) (*reuse, error) {
	n, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions after reuse: %w", err)
	}
	return &reuse{userID: userID, revoked: n}, nil
}

func (s *Sessions) reportReuse(ctx context.Context, r reuse, meta model.SessionMeta) {
	s.metrics.ReuseDetected()
	s.logger.Warn("Session service: refresh token reuse detected, all sessions revoked",
		"user_id", r.userID,
		"revoked", r.revoked)

	err := s.events.Publish(ctx, model.SecurityEvent{
		Type:       model.EventReuseDetected,
		UserID:     r.userID,
		Revoked:    r.revoked,
		Meta:       meta,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("Session service: failed to publish security event",
			"user_id", r.userID,
			"error", err.Error())
	}
}

// Revoke ends the session bound to secret. Empty or unknown secrets are ignored.
func (s *Sessions) Revoke(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		rt, err := tx.RefreshTokens().FindByHash(ctx, token.HashSecret(secret))
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find refresh token: %w", err)
		}
		if rt.Revoked {
			return nil
		}
		if _, err := tx.RefreshTokens().MarkRevoked(ctx, rt.ID); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Session service: failed to revoke refresh token",
			"error", err.Error())
		return err
	}

	return nil
}

// RevokeAll revokes every active session of a user and returns how many were revoked.
func (s *Sessions) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	var revoked int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		n, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		s.logger.Error("Session service: failed to revoke all sessions",
			"user_id", userID,
			"error", err.Error())
		return 0, err
	}

	s.logger.Info("Session service: all sessions revoked",
		"user_id", userID,
		"revoked", revoked)

	return revoked, nil
}

// DeleteAccount soft-deletes a user, detaches its provider links and revokes all of its
// sessions in one transaction. It returns how many sessions were revoked.
func (s *Sessions) DeleteAccount(ctx context.Context, userID int64) (int64, error) {
	var revoked int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		if err := tx.Users().Delete(ctx, userID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAuthError(model.ErrUserNotFound)
			}
			return fmt.Errorf("failed to delete user: %w", err)
		}
		n, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		if model.KindOf(err) != model.KindAuth {
			s.logger.Error("Session service: failed to delete account",
				"user_id", userID,
				"error", err.Error())
		}
		return 0, err
	}

	s.logger.Info("Session service: account deleted",
		"user_id", userID,
		"revoked", revoked)

	return revoked, nil
}

// ListSessions returns the active sessions of a user, newest first.
func (s *Sessions) ListSessions(ctx context.Context, userID int64) ([]model.SessionInfo, error) {
	tokens, err := s.store.RefreshTokens().ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("Session service: failed to list sessions",
			"user_id", userID,
			"error", err.Error())
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]model.SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, model.SessionInfo{
			ID:        t.ID,
			Meta:      t.Meta,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

// VerifyAccessToken validates a bearer access token.
func (s *Sessions) VerifyAccessToken(_ context.Context, accessToken string) (model.AccessClaims, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		s.logger.Debug("Session service: access token rejected",
			"error", err.Error())
		return model.AccessClaims{}, model.NewAuthError(model.ErrInvalidAccessToken)
	}
	return claims, nil
}
