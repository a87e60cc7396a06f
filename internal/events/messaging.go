package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderCreatedQueue     = "order.created"
	PaymentSucceededQueue = "payment.succeeded"
	PaymentFailedQueue    = "payment.failed"
)

// Dial connects to RabbitMQ.
func Dial(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}
