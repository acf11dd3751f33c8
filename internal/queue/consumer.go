package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// EventHandler processes one rating event. Returning an error requeues the
// message once; a second failure dead-letters it.
type EventHandler func(ctx context.Context, event *domain.RatingEvent) error

// ErrPermanent marks handler errors that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// Consumer consumes rating events with a fixed pool of workers.
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers        int // Number of concurrent workers
	Prefetch       int // Prefetch count for the channel
	HandlerTimeout time.Duration
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:        3,
		Prefetch:       10,
		HandlerTimeout: 10 * time.Second,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = def.HandlerTimeout
	}
	return cfg
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.HandlerTimeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		EventQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting rating event consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slog.Debug("worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// disposition is what happens to a delivery after handling.
type disposition int

const (
	ack disposition = iota
	requeue
	deadLetter
)

func (d disposition) String() string {
	switch d {
	case ack:
		return "ack"
	case requeue:
		return "requeue"
	default:
		return "dead_letter"
	}
}

// handle decodes and runs one message body and decides its fate.
func (c *Consumer) handle(ctx context.Context, body []byte, redelivered bool) (disposition, error) {
	var event domain.RatingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return deadLetter, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.ID == "" || event.UserID == "" {
		return deadLetter, fmt.Errorf("event missing id or user_id")
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.handler(hctx, &event); err != nil {
		if errors.Is(err, ErrPermanent) || redelivered {
			return deadLetter, err
		}
		return requeue, err
	}
	return ack, nil
}

func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()
	d, err := c.handle(ctx, msg.Body, msg.Redelivered)

	attrs := []any{
		"worker_id", workerID,
		"message_id", msg.MessageId,
		"outcome", d.String(),
		"duration", time.Since(start),
	}
	if err != nil {
		slog.Warn("rating event handling failed", append(attrs, "error", err)...)
	} else {
		slog.Debug("rating event handled", attrs...)
	}

	var ackErr error
	switch d {
	case ack:
		ackErr = msg.Ack(false)
	case requeue:
		ackErr = msg.Nack(false, true)
	case deadLetter:
		ackErr = msg.Reject(false)
	}
	if ackErr != nil {
		slog.Error("failed to settle message",
			"worker_id", workerID,
			"message_id", msg.MessageId,
			"error", ackErr,
		)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}

// RecordTo returns a handler that writes each event to store. Stores
// ignore duplicate IDs, so redelivered events are harmless.
func RecordTo(store domain.RatingEventStore) EventHandler {
	return func(ctx context.Context, e *domain.RatingEvent) error {
		return store.Record(ctx, e)
	}
}

// Chain runs handlers in order, stopping at the first error.
func Chain(handlers ...EventHandler) EventHandler {
	return func(ctx context.Context, e *domain.RatingEvent) error {
		for _, h := range handlers {
			if err := h(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}
}
