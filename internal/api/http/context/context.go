package context

import (
	"context"

	"github.com/dtroode/authkeeper/internal/model"
)

type claimsKey struct{}

var _ model.ContextManager = (*Manager)(nil)

// Manager stores authenticated access token claims in a request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetClaimsToContext stores access token claims in the request context.
//
// Parameters:
//   - ctx: The request context
//   - claims: The verified access token claims
//
// Returns a new context carrying the claims.
func (m *Manager) SetClaimsToContext(ctx context.Context, claims model.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext retrieves access token claims from the request context.
//
// Parameters:
//   - ctx: The request context
//
// Returns the claims and true, or false when no authenticated user is set.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (model.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.AccessClaims)
	if !ok || claims.UserID <= 0 {
		return model.AccessClaims{}, false
	}
	return claims, true
}
