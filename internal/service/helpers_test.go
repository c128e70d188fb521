package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/repository/sqlite"
	"github.com/dtroode/authkeeper/internal/testutil"
	"github.com/dtroode/authkeeper/internal/token"
)

type countingMetrics struct {
	issued, rotated, reused, expired atomic.Int64
}

func (m *countingMetrics) SessionIssued()  { m.issued.Add(1) }
func (m *countingMetrics) SessionRotated() { m.rotated.Add(1) }
func (m *countingMetrics) ReuseDetected()  { m.reused.Add(1) }
func (m *countingMetrics) SessionExpired() { m.expired.Add(1) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SecurityEvent
	onPub  func(model.SecurityEvent)
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.SecurityEvent) error {
	if p.onPub != nil {
		p.onPub(e)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []model.SecurityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SecurityEvent(nil), p.events...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sessionFixture struct {
	store     *sqlite.Store
	sessions  *Sessions
	metrics   *countingMetrics
	publisher *recordingPublisher
	clock     *clock
}

const testRefreshTTL = 24 * time.Hour

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		store:     testutil.NewSQLiteStore(t),
		metrics:   &countingMetrics{},
		publisher: &recordingPublisher{},
		clock:     &clock{now: time.Now().UTC().Truncate(time.Second)},
	}
	tokens := token.NewJWT("test-secret", "authkeeper-test", 15*time.Minute)
	f.sessions = NewSessions(f.store, tokens, f.publisher, f.metrics, testRefreshTTL, testutil.MakeNoopLogger())
	f.sessions.now = f.clock.Now
	return f
}

// createUser stores a local user with a profile and returns it.
func (f *sessionFixture) createUser(t *testing.T, email string) model.User {
	t.Helper()

	var user model.User
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx model.Tx) error {
		var err error
		user, err = NewIdentity(testutil.MakeNoopLogger()).OnboardLocalUser(ctx, tx, email, "hash", model.ProfileInput{FirstName: "Ann", LastName: "Lee"})
		return err
	})
	require.NoError(t, err)
	return user
}

// issue opens a session for user in its own transaction.
func (f *sessionFixture) issue(t *testing.T, user model.User) model.Session {
	t.Helper()

	var session model.Session
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx model.Tx) error {
		var err error
		session, err = f.sessions.Issue(ctx, tx, user, model.SessionMeta{})
		return err
	})
	require.NoError(t, err)
	return session
}

func (f *sessionFixture) activeSessions(t *testing.T, userID int64) []model.RefreshToken {
	t.Helper()

	tokens, err := f.store.RefreshTokens().ListActiveByUser(context.Background(), userID, f.clock.Now())
	require.NoError(t, err)
	return tokens
}

func (f *sessionFixture) profile(t *testing.T, userID int64) model.Profile {
	t.Helper()

	var p model.Profile
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx model.Tx) error {
		var err error
		p, err = tx.Profiles().GetByUserID(ctx, userID)
		return err
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
