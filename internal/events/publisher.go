package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"mesa-chat-backend/internal/order"
)

// OrderEvent is the envelope announced on the broker when an order is
// submitted.
type OrderEvent struct {
	EventID       string    `json:"eventId"`
	OccurredAt    time.Time `json:"occurredAt"`
	ChatbotID     string    `json:"chatbotId"`
	OrderID       string    `json:"orderId"`
	TableID       string    `json:"tableId,omitempty"`
	SubtotalCents int64     `json:"subtotalCents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	SourceChannel string    `json:"sourceChannel"`
}

// Publisher announces submitted orders on a topic exchange. It is a
// best-effort sink: callers detach the publish and only log failures.
type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	log      zerolog.Logger
}

func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &Publisher{conn: conn, exchange: exchange, log: log}, nil
}

// PublishOrder emits one order-submitted event, routing key
// orders.submitted.<chatbotID>.
func (p *Publisher) PublishOrder(ctx context.Context, o order.Order) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	ev := OrderEvent{
		EventID:       uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		ChatbotID:     o.ChatbotID,
		OrderID:       o.ID,
		TableID:       o.TableID,
		SubtotalCents: o.SubtotalCents,
		Currency:      o.Currency,
		Status:        string(o.Status),
		SourceChannel: o.SourceChannel,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("order event encode: %w", err)
	}
	key := "orders.submitted." + o.ChatbotID
	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("order event publish: %w", err)
	}
	p.log.Info().Str("key", key).Str("orderId", o.ID).Msg("order event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
