package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/authkeeper/internal/api/http/response"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// SessionService lists and revokes the sessions of an authenticated user.
type SessionService interface {
	ListSessions(ctx context.Context, userID int64) ([]model.SessionInfo, error)
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	DeleteAccount(ctx context.Context, userID int64) (int64, error)
}

type sessionsResponse struct {
	Sessions []model.SessionInfo `json:"sessions"`
}

type revokeAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// Sessions handles the session management endpoints. Routes require authentication.
type Sessions struct {
	responder
	sessionService SessionService
	contextManager model.ContextManager
}

// NewSessions creates a new Sessions handler.
func NewSessions(sessionService SessionService, contextManager model.ContextManager, cookies Cookies, logger *logger.Logger) *Sessions {
	return &Sessions{
		responder:      responder{cookies: cookies, logger: logger},
		sessionService: sessionService,
		contextManager: contextManager,
	}
}

func (h *Sessions) userID(r *http.Request) (int64, error) {
	claims, ok := h.contextManager.GetClaimsFromContext(r.Context())
	if !ok {
		return 0, model.NewAuthError(model.ErrInvalidAccessToken)
	}
	return claims.UserID, nil
}

// List returns the caller's active sessions.
func (h *Sessions) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sessions, err := h.sessionService.ListSessions(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}

	response.JSON(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

// RevokeAll logs the caller out everywhere.
func (h *Sessions) RevokeAll(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	revoked, err := h.sessionService.RevokeAll(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Sessions handler: all sessions revoked",
		"user_id", userID,
		"revoked", revoked)

	h.cookies.ClearRefresh(w)
	response.JSON(w, http.StatusOK, revokeAllResponse{Revoked: revoked})
}

// DeleteAccount removes the caller's account and ends every session.
func (h *Sessions) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.sessionService.DeleteAccount(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.ClearRefresh(w)
	w.WriteHeader(http.StatusNoContent)
}
