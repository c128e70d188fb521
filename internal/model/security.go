package model

import (
	"context"
	"time"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// LoginLimiter throttles failed login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SecurityEvent is published when suspicious session activity is observed.
type SecurityEvent struct {
	Type       string      `json:"type"`
	UserID     int64       `json:"userId"`
	Revoked    int64       `json:"revoked"`
	Meta       SessionMeta `json:"meta"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// EventReuseDetected marks a refresh token replay.
const EventReuseDetected = "session.reuse_detected"

// EventPublisher delivers security events.
type EventPublisher interface {
	Publish(ctx context.Context, event SecurityEvent) error
}

// SessionMetrics records session lifecycle counters.
type SessionMetrics interface {
	SessionIssued()
	SessionRotated()
	ReuseDetected()
	SessionExpired()
}
