package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

const (
	DefaultExchange = "city.events"

	RoutingKeyOTPRequested = "auth.otp.requested"

	// Minimum window to wait for Return / Confirm.
	publishWait = 2 * time.Second
	// Mandatory delivery: a Return usually arrives just before the Ack.
	returnGrace = 50 * time.Millisecond
)

// OTPRequestedEvent is the message body consumed by the email service.
type OTPRequestedEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	OTP        int       `json:"otp"`
	Purpose    string    `json:"purpose"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newOTPRequestedEvent(msg auth.OTPMessage, now time.Time) OTPRequestedEvent {
	return OTPRequestedEvent{
		UserID:     msg.UserID,
		Email:      msg.Email,
		Name:       msg.Name,
		OTP:        msg.Code,
		Purpose:    string(msg.Purpose),
		OccurredAt: now.UTC(),
	}
}

// Notifier hands one-time codes to the mail pipeline over a topic exchange,
// using publisher confirms and mandatory routing.
type Notifier struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewNotifier(url, exchange string) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	n := &Notifier{
		url:      url,
		exchange: exchange,
	}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resetConn()
	return nil
}

// ---- auth.Notifier ----

func (n *Notifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	return n.publishJSON(ctx, RoutingKeyOTPRequested, newOTPRequestedEvent(msg, time.Now()))
}

// ---- internal ----

func (n *Notifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		n.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	n.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	n.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	n.conn = conn
	n.ch = ch
	return nil
}

func (n *Notifier) ensureConnected() error {
	if n.conn != nil && !n.conn.IsClosed() && n.ch != nil {
		return nil
	}
	return n.connect()
}

func (n *Notifier) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Ensure there is a deadline to avoid blocking forever.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishWait)
		defer cancel()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.ensureConnected(); err != nil {
		return err
	}

	// Drain stale confirm / return messages so results don't mix.
drain:
	for {
		select {
		case <-n.confirmCh:
		case <-n.returnCh:
		default:
			break drain
		}
	}

	if err := n.ch.PublishWithContext(
		ctx,
		n.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		n.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	select {
	case ret := <-n.returnCh:
		return unroutable(routingKey, ret)

	case conf := <-n.confirmCh:
		select {
		case ret := <-n.returnCh:
			return unroutable(routingKey, ret)
		case <-time.After(returnGrace):
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func unroutable(routingKey string, ret amqp.Return) error {
	return fmt.Errorf(
		"rabbitmq unroutable: key=%s code=%d text=%s",
		routingKey, ret.ReplyCode, ret.ReplyText,
	)
}

func (n *Notifier) resetConn() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}
