// Package worker runs the background loops: the outbox relay and the session sweeper.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/hub"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
)

// Publisher delivers one payment event to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

type Runner interface {
	Run(ctx context.Context) error
}

type RelayConfig struct {
	// Consumer names the stored offset. Each publisher needs its own.
	Consumer  string
	BatchSize int
	// Types limits which event types are published. Empty means all.
	Types []string
}

// Relay forwards payment events past its stored offset to a publisher.
// Delivery is at least once: the offset only advances past published events.
type Relay struct {
	store     store.OutboxStore
	publisher Publisher
	consumer  string
	batchSize int
	types     map[string]struct{}
	logger    *slog.Logger
}

func NewRelay(st store.OutboxStore, publisher Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	var types map[string]struct{}
	if len(cfg.Types) > 0 {
		types = make(map[string]struct{}, len(cfg.Types))
		for _, t := range cfg.Types {
			types[t] = struct{}{}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		store:     st,
		publisher: publisher,
		consumer:  cfg.Consumer,
		batchSize: batch,
		types:     types,
		logger:    logger.With("consumer", cfg.Consumer),
	}
}

func (r *Relay) Run(ctx context.Context) error {
	last, err := r.store.GetRelayOffset(ctx, r.consumer)
	if err != nil {
		return fmt.Errorf("load relay offset: %w", err)
	}

	events, err := r.store.ListOutboxEvents(ctx, last, r.batchSize)
	if err != nil {
		return fmt.Errorf("list outbox events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	next := last
	var publishErr error
	for _, event := range events {
		if r.wants(event.Type) {
			if publishErr = r.publisher.Publish(ctx, event); publishErr != nil {
				break
			}
		}
		next = event.Seq
	}

	if next != last {
		if err := r.store.UpdateRelayOffset(ctx, r.consumer, next); err != nil {
			return fmt.Errorf("update relay offset: %w", err)
		}
		r.logger.Debug("relay advanced", "from", last, "to", next)
	}
	if publishErr != nil {
		return fmt.Errorf("publish event after seq %d: %w", next, publishErr)
	}
	return nil
}

func (r *Relay) wants(eventType string) bool {
	if r.types == nil {
		return true
	}
	_, ok := r.types[eventType]
	return ok
}

// HubPublisher pushes events to connected realtime clients.
type HubPublisher struct {
	Hub *hub.Hub
}

type eventEnvelope struct {
	Type      string          `json:"type"`
	PaymentID string          `json:"payment_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p HubPublisher) Publish(_ context.Context, event models.PaymentEvent) error {
	var payment struct {
		CustomerID string `json:"customerId"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payment); err != nil {
			return fmt.Errorf("decode event %d payload: %w", event.Seq, err)
		}
	}
	payload, err := json.Marshal(eventEnvelope{
		Type:      event.Type,
		PaymentID: event.PaymentID,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return err
	}
	p.Hub.Broadcast(payload, hub.Event{Type: event.Type, PaymentID: event.PaymentID, CustomerID: payment.CustomerID})
	return nil
}

// Start calls r.Run every interval until ctx is cancelled.
func Start(ctx context.Context, interval time.Duration, name string, r Runner, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("worker run failed", "worker", name, "error", err)
			}
		}
	}
}
