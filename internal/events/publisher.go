// Package events publishes security events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dtroode/authkeeper/internal/model"
)

// Internal adapter interface to enable testing without a broker.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ model.EventPublisher = (*Publisher)(nil)

// link is one live broker connection with its channel.
type link struct {
	ch     amqpChannel
	conn   io.Closer
	closed <-chan *amqp.Error
}

type dialFunc func() (link, error)

// Publisher sends events to a durable topic exchange, routed by event type.
// When the broker drops the connection the next Publish dials again.
type Publisher struct {
	dial     dialFunc
	exchange string

	mu   sync.Mutex
	live *link
}

// NewPublisher dials the broker at url and declares exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	return newPublisher(func() (link, error) { return dialBroker(url) }, exchange)
}

func dialBroker(url string) (link, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return link{}, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return link{}, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	return link{
		ch:     ch,
		conn:   conn,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// NewPublisherWithChannel allows injecting a channel (used in tests). It never redials.
func NewPublisherWithChannel(ch amqpChannel, exchange string) (*Publisher, error) {
	return newPublisher(func() (link, error) { return link{ch: ch}, nil }, exchange)
}

func newPublisher(dial dialFunc, exchange string) (*Publisher, error) {
	p := &Publisher{dial: dial, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held or before p is shared.
func (p *Publisher) connect() error {
	l, err := p.dial()
	if err != nil {
		return err
	}

	if err := l.ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = l.ch.Close()
		if l.conn != nil {
			_ = l.conn.Close()
		}
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.live = &l
	if l.closed != nil {
		go p.watch(&l)
	}
	return nil
}

// watch forgets l once the broker closes it.
func (p *Publisher) watch(l *link) {
	<-l.closed

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == l {
		p.live = nil
	}
}

// Publish sends event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event model.SecurityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live == nil {
		if err := p.connect(); err != nil {
			return fmt.Errorf("failed to reconnect to rabbitmq: %w", err)
		}
	}

	err = p.live.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		p.drop()
		if err := p.connect(); err != nil {
			return fmt.Errorf("failed to reconnect to rabbitmq: %w", err)
		}
		err = p.live.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *Publisher) drop() {
	if p.live == nil {
		return
	}
	_ = p.live.ch.Close()
	if p.live.conn != nil {
		_ = p.live.conn.Close()
	}
	p.live = nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live == nil {
		return nil
	}
	l := p.live
	p.live = nil

	if err := l.ch.Close(); err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, model.SecurityEvent) error { return nil }
