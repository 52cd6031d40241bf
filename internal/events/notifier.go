package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// Notifier turns committed order changes into events. Failures are logged,
// not returned: the change they describe is already durable.
type Notifier struct {
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotifier cria uma nova instância de Notifier
func NewNotifier(publisher Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger, now: time.Now}
}

// OrderCreated announces a new order.
func (n *Notifier) OrderCreated(ctx context.Context, order *domain.Order) {
	n.publish(ctx, Event{
		Type:       OrderCreated,
		OrderID:    order.ID,
		Status:     order.Status,
		Order:      order,
		OccurredAt: n.now(),
	})
}

// StatusChanged announces a committed transition.
func (n *Notifier) StatusChanged(ctx context.Context, order *domain.Order, from domain.Status) {
	n.publish(ctx, Event{
		Type:           OrderStatusChanged,
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: from,
		OccurredAt:     n.now(),
	})
}

func (n *Notifier) publish(ctx context.Context, event Event) {
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("[EVENTS] publish failed",
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
}
