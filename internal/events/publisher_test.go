package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/model"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel implements amqpChannel for testing without a broker.
type fakeChannel struct {
	declareErr error
	publishErr error
	closed     bool
	kind       string
	durable    bool
	sent       []published
}

func (f *fakeChannel) ExchangeDeclare(_ string, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.kind = kind
	f.durable = durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisherWithChannel(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisherWithChannel(ch, "authkeeper.security")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, amqp.ExchangeTopic, ch.kind)
	assert.True(t, ch.durable)
}

func TestNewPublisherWithChannel_DeclareError(t *testing.T) {
	p, err := NewPublisherWithChannel(&fakeChannel{declareErr: errors.New("boom")}, "x")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to declare exchange")
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisherWithChannel(ch, "authkeeper.security")
	require.NoError(t, err)

	ip := "10.0.0.1"
	event := model.SecurityEvent{
		Type:       model.EventReuseDetected,
		UserID:     42,
		Revoked:    3,
		Meta:       model.SessionMeta{IPAddress: &ip},
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "authkeeper.security", sent.exchange)
	assert.Equal(t, model.EventReuseDetected, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.NotEmpty(t, sent.msg.MessageId)

	var decoded model.SecurityEvent
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, int64(42), decoded.UserID)
	assert.Equal(t, int64(3), decoded.Revoked)
	require.NotNil(t, decoded.Meta.IPAddress)
	assert.Equal(t, ip, *decoded.Meta.IPAddress)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisherWithChannel(ch, "x")
	require.NoError(t, err)
	ch.publishErr = errors.New("channel closed")

	err = p.Publish(context.Background(), model.SecurityEvent{Type: model.EventReuseDetected})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeBroker hands out a fresh channel on every dial.
type fakeBroker struct {
	mu       sync.Mutex
	channels []*fakeChannel
	conns    []*fakeConn
	notify   []chan *amqp.Error
	dialErr  error
}

func (b *fakeBroker) dial() (link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialErr != nil {
		return link{}, b.dialErr
	}
	ch, conn, closed := &fakeChannel{}, &fakeConn{}, make(chan *amqp.Error, 1)
	b.channels = append(b.channels, ch)
	b.conns = append(b.conns, conn)
	b.notify = append(b.notify, closed)
	return link{ch: ch, conn: conn, closed: closed}, nil
}

func (b *fakeBroker) dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels)
}

func (b *fakeBroker) channel(i int) *fakeChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channels[i]
}

func TestPublisher_RedialsAfterConnectionClose(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newPublisher(broker.dial, "authkeeper.security")
	require.NoError(t, err)
	ctx := context.Background()
	event := model.SecurityEvent{Type: model.EventReuseDetected, UserID: 1}

	require.NoError(t, p.Publish(ctx, event))
	require.Equal(t, 1, broker.dials())

	broker.notify[0] <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.live == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Publish(ctx, event))
	assert.Equal(t, 2, broker.dials())
	assert.Len(t, broker.channel(0).sent, 1)
	assert.Len(t, broker.channel(1).sent, 1)
	assert.Equal(t, amqp.ExchangeTopic, broker.channel(1).kind)
}

func TestPublisher_RetriesOnClosedChannel(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newPublisher(broker.dial, "x")
	require.NoError(t, err)
	broker.channel(0).publishErr = amqp.ErrClosed

	require.NoError(t, p.Publish(context.Background(), model.SecurityEvent{Type: model.EventReuseDetected}))
	assert.Equal(t, 2, broker.dials())
	assert.True(t, broker.channel(0).closed)
	assert.True(t, broker.conns[0].closed)
	assert.Len(t, broker.channel(1).sent, 1)
}

func TestPublisher_BrokerStillDown(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newPublisher(broker.dial, "x")
	require.NoError(t, err)

	broker.channel(0).publishErr = amqp.ErrClosed
	broker.dialErr = errors.New("connection refused")

	err = p.Publish(context.Background(), model.SecurityEvent{Type: model.EventReuseDetected})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reconnect to rabbitmq")

	broker.mu.Lock()
	broker.dialErr = nil
	broker.mu.Unlock()

	require.NoError(t, p.Publish(context.Background(), model.SecurityEvent{Type: model.EventReuseDetected}))
	assert.Equal(t, 2, broker.dials())
	require.NoError(t, p.Close())
	assert.True(t, broker.channel(1).closed)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), model.SecurityEvent{}))
}
