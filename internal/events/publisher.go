package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/order"
)

// Publisher emits order lifecycle events to RabbitMQ. Publish failures
// are logged, never propagated: the request that triggered the event has
// already committed its state.
type Publisher struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewPublisher(conn *amqp.Connection, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare queues so publish never fails due to missing infra
	for _, q := range []string{OrderCreatedQueue, PaymentSucceededQueue, PaymentFailedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}

	return &Publisher{ch: ch, logger: logger}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) {
	ev := OrderCreated{
		EventType: "OrderCreated",
		OrderID:   o.ID,
		UserID:    o.UserID,
		Total:     o.Total,
		Timestamp: time.Now().UTC(),
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	p.publishJSON(ctx, OrderCreatedQueue, ev)
}

func (p *Publisher) PublishPaymentSucceeded(ctx context.Context, o *order.Order) {
	p.publishJSON(ctx, PaymentSucceededQueue, PaymentSucceeded{
		EventType: "PaymentSucceeded",
		OrderID:   o.ID,
		UserID:    o.UserID,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) PublishPaymentFailed(ctx context.Context, o *order.Order, reason string) {
	p.publishJSON(ctx, PaymentFailedQueue, PaymentFailed{
		EventType: "PaymentFailed",
		OrderID:   o.ID,
		UserID:    o.UserID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publishJSON(ctx context.Context, queue string, ev any) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal event", zap.String("queue", queue), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		"",    // default exchange
		queue, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("publish event", zap.String("queue", queue), zap.Error(err))
	}
}
