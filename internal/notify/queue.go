package notify

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"sync"    // Publish serialization
	"time"    // Message timestamps

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
	"github.com/sirupsen/logrus"          // Structured logging
)

const routingKey = "email"

// Queue publishes messages to a RabbitMQ exchange and consumes them back
type Queue struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	mu       sync.Mutex
}

// DialQueue connects and declares the exchange, queue and binding
func DialQueue(url, exchange, queue string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(step string, err error) (*Queue, error) {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to %s: %w", step, err)
	}
	if err := channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fail("declare queue", err)
	}
	if err := channel.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	// One unacknowledged message at a time per consumer
	if err := channel.Qos(1, 0, false); err != nil {
		return fail("set prefetch", err)
	}

	logrus.WithFields(logrus.Fields{"exchange": exchange, "queue": queue}).Info("connected to RabbitMQ")
	return &Queue{conn: conn, channel: channel, exchange: exchange, queue: queue}, nil
}

// Send publishes msg as a persistent JSON message
func (q *Queue) Send(ctx context.Context, msg Message) error {
	body, err := Encode(msg)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.channel.PublishWithContext(ctx, q.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(msg.Kind),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Consume hands every queued message to handle until ctx is cancelled.
// Undecodable messages are dropped; a failed message is requeued once and dropped
// when it fails again.
func (q *Queue) Consume(ctx context.Context, handle func(context.Context, Message) error) error {
	deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	logrus.WithField("queue", q.queue).Info("consuming notifications")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			process(ctx, d, handle)
		}
	}
}

// acknowledger is the part of amqp.Delivery that process needs
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func process(ctx context.Context, d amqp.Delivery, handle func(context.Context, Message) error) {
	settle(ctx, &d, d.Body, d.Redelivered, handle)
}

func settle(ctx context.Context, ack acknowledger, body []byte, redelivered bool, handle func(context.Context, Message) error) {
	msg, err := Decode(body)
	if err != nil {
		logrus.WithError(err).Error("dropping malformed notification")
		_ = ack.Nack(false, false)
		return
	}
	if err := handle(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"kind":        msg.Kind,
			"to":          msg.To,
			"redelivered": redelivered,
		}).WithError(err).Error("notification handler failed")
		_ = ack.Nack(false, !redelivered)
		return
	}
	_ = ack.Ack(false)
}

// Close closes the channel and connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
