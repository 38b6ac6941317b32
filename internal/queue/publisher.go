package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

// Publisher sends NotificationEvent messages to the notification queue.
// The broker connection is opened on first use and reopened after it drops,
// so the API starts even when RabbitMQ is down.
type Publisher struct {
	url string
	log *log.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, l *log.Logger) *Publisher {
	return &Publisher{url: url, log: l}
}

// ParticipationChanged publishes the event for a participation change.
func (p *Publisher) ParticipationChanged(ctx context.Context, t model.NotificationType, m model.Match, part model.Participation) error {
	return p.Publish(ctx, ParticipationEvent(t, m, part))
}

// MatchCancelled publishes one event per affected participant.  It stops at
// the first failure.
func (p *Publisher) MatchCancelled(ctx context.Context, m model.Match, affected []model.Participation) error {
	return p.Publish(ctx, MatchCancelledEvents(m, affected)...)
}

// Publish sends events as persistent JSON messages on the default exchange.
func (p *Publisher) Publish(ctx context.Context, events ...NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		pub := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // store on disk
			MessageId:    ev.EventID,
			Type:         string(ev.Type),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		}
		if err := ch.PublishWithContext(ctx, "", NotificationQueue, false, false, pub); err != nil {
			p.reset()
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
	return nil
}

// channel returns an open channel, dialing when needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	if p.log != nil {
		p.log.Infof("rabbitmq publisher connected queue=%s", NotificationQueue)
	}
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
