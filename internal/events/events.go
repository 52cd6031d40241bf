// Package events publishes order facts for downstream consumers such as
// report exporters. Publishing is best effort and never undoes a commit.
package events

import (
	"context"
	"time"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// Type names an order event.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
)

// Event is the JSON payload written to the order topic.
type Event struct {
	Type           Type          `json:"type"`
	OrderID        string        `json:"order_id"`
	Status         domain.Status `json:"status"`
	PreviousStatus domain.Status `json:"previous_status,omitempty"`
	Order          *domain.Order `json:"order,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
