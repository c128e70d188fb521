package handler

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dtroode/authkeeper/internal/api/grpc/sessionpb"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// SessionService exposes session state to internal callers.
type SessionService interface {
	VerifyAccessToken(ctx context.Context, token string) (model.AccessClaims, error)
	ListSessions(ctx context.Context, userID int64) ([]model.SessionInfo, error)
	RevokeAll(ctx context.Context, userID int64) (int64, error)
}

// Sessions handles the internal session gRPC endpoints.
type Sessions struct {
	sessionpb.UnimplementedSessionsServer
	sessionService SessionService
	logger         *logger.Logger
}

// NewSessions creates a new Sessions handler.
func NewSessions(sessionService SessionService, logger *logger.Logger) *Sessions {
	return &Sessions{
		sessionService: sessionService,
		logger:         logger,
	}
}

// VerifyAccessToken returns the claims of a valid access token.
func (h *Sessions) VerifyAccessToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := h.sessionService.VerifyAccessToken(ctx, req.GetValue())
	if err != nil {
		h.logger.Debug("Sessions handler: access token rejected",
			"error", err.Error())
		return nil, handleError(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, handleError(err)
	}

	return resp, nil
}

// ListSessions returns the active sessions of a user.
func (h *Sessions) ListSessions(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	userID := req.GetValue()
	if userID <= 0 {
		return nil, handleError(model.NewValidationErrorf("user id must be positive"))
	}

	sessions, err := h.sessionService.ListSessions(ctx, userID)
	if err != nil {
		h.logger.Error("Sessions handler: failed to list sessions",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	items := make([]any, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, map[string]any{
			"id":         s.ID,
			"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
			"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339),
			"meta":       metaFields(s.Meta),
		})
	}

	resp, err := structpb.NewStruct(map[string]any{"sessions": items})
	if err != nil {
		return nil, handleError(err)
	}

	return resp, nil
}

// RevokeAllSessions revokes every session of a user and returns how many were revoked.
func (h *Sessions) RevokeAllSessions(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	userID := req.GetValue()
	if userID <= 0 {
		return nil, handleError(model.NewValidationErrorf("user id must be positive"))
	}

	revoked, err := h.sessionService.RevokeAll(ctx, userID)
	if err != nil {
		h.logger.Error("Sessions handler: failed to revoke sessions",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Sessions handler: sessions revoked",
		"user_id", userID,
		"revoked", revoked)

	return wrapperspb.Int64(revoked), nil
}

func metaFields(m model.SessionMeta) map[string]any {
	return map[string]any{
		"platform":    optional(m.Platform),
		"browser":     optional(m.Browser),
		"device_type": optional(m.DeviceType),
		"device_name": optional(m.DeviceName),
		"user_agent":  optional(m.UserAgent),
		"ip_address":  optional(m.IPAddress),
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
