package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/monitoring"
)

const (
	outcomeInvalidated = "invalidated"
	outcomeIgnored     = "ignored"
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
)

// errMalformedEvent marks payloads that will never succeed and go straight to the DLX
var errMalformedEvent = errors.New("malformed ledger event")

// CacheInvalidator drops cached analytics affected by a ledger change
type CacheInvalidator interface {
	InvalidateInvestor(ctx context.Context, investorID int64, reason string) error
	InvalidateProject(ctx context.Context, projectID int64, reason string) (int, error)
}

// LedgerEventConsumer listens to investment and distribution events and
// evicts the cached reports they make stale
type LedgerEventConsumer struct {
	cfg         config.RabbitMQConfig
	invalidator CacheInvalidator
	metrics     monitoring.MetricsService
	logger      *logrus.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLedgerEventConsumer(
	cfg config.RabbitMQConfig,
	invalidator CacheInvalidator,
	metrics monitoring.MetricsService,
	logger *logrus.Logger,
) *LedgerEventConsumer {
	if metrics == nil {
		metrics = monitoring.NoopMetrics{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 10 * time.Second
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 10
	}

	return &LedgerEventConsumer{
		cfg:         cfg,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger,
	}
}

// Start connects and declares the topology, then consumes in the background.
// A dropped connection is re-established every ReconnectDelay until Stop.
func (c *LedgerEventConsumer) Start(ctx context.Context) error {
	deliveries, closed, err := c.connect()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, deliveries, closed)

	c.logger.WithFields(logrus.Fields{
		"exchange":     c.cfg.Exchange,
		"queue":        c.cfg.Queue,
		"routing_keys": c.cfg.RoutingKeys,
	}).Info("Ledger event consumer started")
	return nil
}

// Stop cancels consumption and closes the broker connection
func (c *LedgerEventConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.closeConnection()
	c.logger.Info("Ledger event consumer stopped")
	return nil
}

func (c *LedgerEventConsumer) run(ctx context.Context, deliveries <-chan amqp.Delivery, closed chan *amqp.Error) {
	defer close(c.done)

	for {
		c.consume(ctx, deliveries, closed)
		if ctx.Err() != nil {
			return
		}

		c.closeConnection()
		for {
			c.logger.WithField("delay", c.cfg.ReconnectDelay).Warn("Ledger event consumer reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}

			var err error
			deliveries, closed, err = c.connect()
			if err == nil {
				c.logger.Info("Ledger event consumer reconnected")
				break
			}
			c.logger.WithError(err).Error("Failed to reconnect to RabbitMQ")
		}
	}
}

func (c *LedgerEventConsumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery, closed chan *amqp.Error) {
	for {
		select {
		case <-ctx.Done():
			return
		case amqpErr := <-closed:
			if amqpErr != nil {
				c.logger.WithField("reason", amqpErr.Reason).Warn("RabbitMQ connection closed")
			}
			return
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Message channel closed")
				return
			}
			c.process(ctx, msg)
		}
	}
}

func (c *LedgerEventConsumer) process(ctx context.Context, msg amqp.Delivery) {
	handlerCtx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	outcome, err := c.handleEvent(handlerCtx, msg.RoutingKey, msg.Body)
	c.metrics.RecordLedgerEvent(msg.RoutingKey, outcome)

	entry := c.logger.WithFields(logrus.Fields{
		"routing_key": msg.RoutingKey,
		"message_id":  msg.MessageId,
		"outcome":     outcome,
	})

	switch {
	case err == nil:
		entry.Debug("Ledger event processed")
		_ = msg.Ack(false)
	case errors.Is(err, errMalformedEvent):
		entry.WithError(err).Warn("Rejecting ledger event")
		_ = msg.Nack(false, false)
	default:
		// one redelivery, then the DLX
		entry.WithError(err).Error("Failed to process ledger event")
		_ = msg.Nack(false, !msg.Redelivered)
	}
}

// handleEvent applies one event and reports the metric outcome
func (c *LedgerEventConsumer) handleEvent(ctx context.Context, routingKey string, body []byte) (string, error) {
	var event LedgerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return outcomeRejected, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	family, _, _ := strings.Cut(routingKey, ".")
	switch family {
	case "investment":
		if event.InvestorID <= 0 {
			return outcomeRejected, fmt.Errorf("%w: %s without investorId", errMalformedEvent, routingKey)
		}
		if err := c.invalidator.InvalidateInvestor(ctx, event.InvestorID, routingKey); err != nil {
			return outcomeFailed, err
		}
		return outcomeInvalidated, nil

	case "distribution":
		if event.ProjectID <= 0 {
			return outcomeRejected, fmt.Errorf("%w: %s without projectId", errMalformedEvent, routingKey)
		}
		cleared, err := c.invalidator.InvalidateProject(ctx, event.ProjectID, routingKey)
		if err != nil {
			return outcomeFailed, err
		}
		c.logger.WithFields(logrus.Fields{
			"project_id": event.ProjectID,
			"investors":  cleared,
		}).Debug("Project holders invalidated")
		return outcomeInvalidated, nil

	default:
		return outcomeIgnored, nil
	}
}

func (c *LedgerEventConsumer) connect() (<-chan amqp.Delivery, chan *amqp.Error, error) {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat: c.cfg.Heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	if err := ch.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		c.cfg.Queue,
		c.consumerTag(),
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	return deliveries, closed, nil
}

func (c *LedgerEventConsumer) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	var args amqp.Table
	if c.cfg.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(c.cfg.DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter exchange: %w", err)
		}
		args = amqp.Table{"x-dead-letter-exchange": c.cfg.DeadLetterExchange}
	}

	q, err := ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range c.cfg.RoutingKeys {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}
	return nil
}

func (c *LedgerEventConsumer) consumerTag() string {
	prefix := c.cfg.ConsumerTag
	if prefix == "" {
		prefix = "portfolio-analytics"
	}
	return prefix + "-" + uuid.NewString()[:8]
}

func (c *LedgerEventConsumer) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing channel")
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing connection")
		}
		c.conn = nil
	}
}
