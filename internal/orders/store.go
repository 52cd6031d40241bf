// Package orders persists orders. Apart from status, an order is never
// modified and never deleted once created.
package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// ErrDuplicateOrderID is returned by Create when the id is already taken.
var ErrDuplicateOrderID = errors.New("order id already exists")

// Store define a interface para operações de banco de dados de pedidos
type Store interface {
	Create(ctx context.Context, tx storage.Tx, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx storage.Tx, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx storage.Tx, id string, status domain.Status) error
	// List returns matching orders, newest first.
	List(ctx context.Context, filter Filter) ([]domain.Order, error)
}

// Filter narrows List. Zero values match everything. From and To are
// inclusive YYYY-MM-DD bounds.
type Filter struct {
	From            string
	To              string
	Statuses        []domain.Status
	PickupLocations []string
	Mode            domain.FulfillmentMode
	// Query is a case-insensitive substring of the order id or customer name.
	Query string
}

// Validate checks date bounds and the fulfillment mode.
func (f Filter) Validate() error {
	if f.From != "" {
		if _, err := domain.ParseDate("from", f.From); err != nil {
			return err
		}
	}
	if f.To != "" {
		if _, err := domain.ParseDate("to", f.To); err != nil {
			return err
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return domain.NewValidationError("from", "must not be after to")
	}
	switch f.Mode {
	case "", domain.FulfillmentHomeDelivery, domain.FulfillmentPickup:
	default:
		return domain.NewValidationError("mode", "must be home_delivery or pickup")
	}
	return nil
}

// Matches applies the filter to a single order.
func (f Filter) Matches(o *domain.Order) bool {
	if f.From != "" && o.Date < f.From {
		return false
	}
	if f.To != "" && o.Date > f.To {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if len(f.PickupLocations) > 0 && !containsString(f.PickupLocations, o.Fulfillment.PickupLocation) {
		return false
	}
	if f.Mode != "" && o.Fulfillment.Mode != f.Mode {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(o.ID), q) && !strings.Contains(strings.ToLower(o.CustomerName), q) {
			return false
		}
	}
	return true
}

// CheckDecoded rejects values that a valid write could never have produced.
func CheckDecoded(o *domain.Order) error {
	if _, err := domain.ParseStatus(string(o.Status)); err != nil {
		return domain.CorruptStateError("order "+o.ID+" status", err)
	}
	switch o.Fulfillment.Mode {
	case domain.FulfillmentHomeDelivery, domain.FulfillmentPickup:
	default:
		return domain.CorruptStateError("order "+o.ID+" fulfillment mode", nil)
	}
	if len(o.Items) == 0 {
		return domain.CorruptStateError("order "+o.ID+" has no items", nil)
	}
	return nil
}

func containsStatus(values []domain.Status, v domain.Status) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
