package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"

	"productdash/internal/models"
)

// ErrChannelUnavailable is returned when the client has no open channel.
var ErrChannelUnavailable = errors.New("RabbitMQ channel is not available")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
	// Exchange is the topic exchange product events are published to.
	Exchange string
	// Queue is the queue the consumer binds to the exchange.
	Queue string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, opens a channel and declares the product exchange.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("RabbitMQ client connected", zap.String("exchange", cfg.Exchange))

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		logger:   logger,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishProductEvent publishes a product change event. The event type is the routing key.
func (c *Client) PublishProductEvent(event models.ProductEvent) error {
	if c.channel == nil {
		return ErrChannelUnavailable
	}

	body, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	err = c.channel.Publish(
		c.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("product event published", zap.String("type", event.Type), zap.String("uuid", event.UUID))
	return nil
}

// ConsumeProductEvents binds the client queue to every product event and
// hands each decoded event to handler. Messages are acked when handler
// succeeds, requeued once when it fails, and dropped when they cannot be decoded.
// The returned channel is closed when the delivery stream ends.
func (c *Client) ConsumeProductEvents(handler func(models.ProductEvent) error) (<-chan struct{}, error) {
	if c.channel == nil {
		return nil, ErrChannelUnavailable
	}

	queue, err := c.channel.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue for consuming: %w", err)
	}

	if err := c.channel.QueueBind(queue.Name, "product.*", c.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("waiting for product events", zap.String("queue", queue.Name))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
	}()
	return done, nil
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(models.ProductEvent) error) {
	settle(c.logger, msg.Body, msg.Redelivered, msg, handler)
}

// settle runs handler on one message body and acks or nacks it.
func settle(logger *zap.Logger, body []byte, redelivered bool, ack acknowledger, handler func(models.ProductEvent) error) {
	event, err := DecodeEvent(body)
	if err != nil {
		logger.Warn("dropping malformed product event", zap.ByteString("body", body), zap.Error(err))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			logger.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := handler(event); err != nil {
		logger.Warn("failed to process product event",
			zap.String("type", event.Type),
			zap.Bool("redelivered", redelivered),
			zap.Error(err))
		if nackErr := ack.Nack(false, !redelivered); nackErr != nil {
			logger.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if ackErr := ack.Ack(false); ackErr != nil {
		logger.Error("failed to ack message", zap.Error(ackErr))
	}
}

// EncodeEvent marshals a product event to its JSON wire form.
func EncodeEvent(event models.ProductEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product event: %w", err)
	}
	return body, nil
}

// DecodeEvent parses a product event from its JSON wire form.
func DecodeEvent(body []byte) (models.ProductEvent, error) {
	var event models.ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ProductEvent{}, fmt.Errorf("failed to unmarshal product event: %w", err)
	}
	if event.Type == "" {
		return models.ProductEvent{}, errors.New("product event has no type")
	}
	return event, nil
}
