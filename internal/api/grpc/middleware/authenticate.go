package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authkeeper/internal/logger"
)

// InternalKey admits callers presenting the shared internal key as a bearer token.
type InternalKey struct {
	key    []byte
	logger *logger.Logger
}

// NewInternalKey creates a new InternalKey middleware instance.
func NewInternalKey(key string, logger *logger.Logger) *InternalKey {
	return &InternalKey{key: []byte(key), logger: logger}
}

// AuthFunc checks the authorization metadata against the internal key.
func (m *InternalKey) AuthFunc(ctx context.Context) (context.Context, error) {
	token, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, err
	}

	if len(m.key) == 0 || subtle.ConstantTimeCompare([]byte(token), m.key) != 1 {
		m.logger.Warn("Authenticate middleware: invalid internal key presented")
		return nil, status.Error(codes.Unauthenticated, "invalid internal key")
	}

	return ctx, nil
}
