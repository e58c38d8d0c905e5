package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

// OrderEvent is published after every committed status transition so
// subscribers observe transitions in commit order.
type OrderEvent struct {
	OrderID    string             `json:"order_id"`
	Status     domain.OrderStatus `json:"status"`
	DriverID   string             `json:"driver_id,omitempty"`
	Price      int64              `json:"price,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func orderChannel(orderID string) string {
	return "order:events:" + orderID
}

// EventStore publishes and subscribes to order lifecycle events over
// Redis pub/sub.
type EventStore struct {
	client *redis.Client
}

// NewEventStore creates a new EventStore.
func NewEventStore(client *redis.Client) *EventStore {
	return &EventStore{client: client}
}

// PublishOrderEvent publishes an event on the order's channel. Publishing
// happens after the database write commits, so per-order events arrive in
// status-table order.
func (s *EventStore) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, orderChannel(event.OrderID), data).Err()
}

// SubscribeOrderEvents delivers events for one order until stop is
// called or ctx ends.
func (s *EventStore) SubscribeOrderEvents(ctx context.Context, orderID string) (<-chan OrderEvent, func(), error) {
	sub := s.client.Subscribe(ctx, orderChannel(orderID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan OrderEvent)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = sub.Close() }
	return out, stop, nil
}
