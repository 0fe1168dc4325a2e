// Package mq hands payment events to downstream settlement consumers over AMQP.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	minRetryDelay  = time.Second
	maxRetryDelay  = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var (
	ErrChannelUnavailable = errors.New("rabbitmq channel not available")
	ErrClosed             = errors.New("rabbitmq publisher closed")
)

type Config struct {
	URL      string
	Exchange string
}

// RabbitMQ publishes to a durable topic exchange. Routing keys are event types.
// Run keeps the connection alive; Publish fails with ErrChannelUnavailable
// while it is down.
type RabbitMQ struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool

	// connect opens a connection and returns a channel that yields once it is lost.
	connect    func() (<-chan *amqp.Error, error)
	retryDelay time.Duration
}

func New(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("amqp exchange is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	mq := &RabbitMQ{url: cfg.URL, exchange: cfg.Exchange, logger: logger, retryDelay: minRetryDelay}
	mq.connect = mq.dial
	return mq, nil
}

// Run connects with exponential backoff and reconnects whenever the
// connection or channel drops. It returns when ctx is cancelled.
func (mq *RabbitMQ) Run(ctx context.Context) {
	delay := mq.retryDelay
	attempt := 0
	for ctx.Err() == nil {
		attempt++
		lost, err := mq.connect()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			mq.logger.Warn("rabbitmq connection attempt failed", "attempt", attempt, "retry_in", delay.String(), "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = nextDelay(delay)
			continue
		}

		mq.logger.Info("rabbitmq connected", "attempt", attempt, "exchange", mq.exchange)
		attempt = 0
		delay = mq.retryDelay

		select {
		case <-ctx.Done():
			return
		case amqpErr := <-lost:
			mq.drop()
			mq.logger.Warn("rabbitmq connection lost", "error", amqpErr)
		}
	}
}

func nextDelay(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * 1.5)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func (mq *RabbitMQ) dial() (<-chan *amqp.Error, error) {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(mq.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", mq.exchange, err)
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	lost := make(chan *amqp.Error, 1)
	go func() {
		var amqpErr *amqp.Error
		select {
		case amqpErr = <-connClosed:
		case amqpErr = <-chClosed:
		}
		lost <- amqpErr
	}()

	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.closed {
		_ = ch.Close()
		_ = conn.Close()
		return nil, ErrClosed
	}
	mq.conn = conn
	mq.ch = ch
	return lost, nil
}

// drop releases the current connection so Publish reports it unavailable.
func (mq *RabbitMQ) drop() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.ch != nil {
		_ = mq.ch.Close()
		mq.ch = nil
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
		mq.conn = nil
	}
}

// Publish sends one payment event, routed by its type.
func (mq *RabbitMQ) Publish(ctx context.Context, event models.PaymentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	mq.mu.RLock()
	ch := mq.ch
	closed := mq.closed
	mq.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if ch == nil {
		return ErrChannelUnavailable
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(publishCtx, mq.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%s:%d", event.PaymentID, event.Seq),
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
	})
}

func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	if mq.closed {
		mq.mu.Unlock()
		return
	}
	mq.closed = true
	mq.mu.Unlock()

	mq.drop()
	mq.logger.Info("rabbitmq closed")
}
