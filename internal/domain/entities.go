package domain

import (
	"math"
	"time"
)

// Product representa um item do catálogo com seu estoque atual
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	Spec        string    `json:"spec" db:"spec"`
	Description string    `json:"description,omitempty" db:"description"`
	UnitPrice   int64     `json:"unit_price" db:"unit_price"`
	Stock       int       `json:"stock" db:"stock"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields a product must carry before it is saved.
func (p *Product) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", "is required")
	}
	if p.Category == "" {
		return NewValidationError("category", "is required")
	}
	if p.UnitPrice < 0 {
		return NewValidationError("unit_price", "must not be negative")
	}
	if p.Stock < 0 {
		return NewValidationError("stock", "must not be negative")
	}
	return nil
}

// CartLine is one requested product in a cart.
type CartLine struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// MergeLines validates quantities and folds repeated product ids into a
// single line, keeping the order in which products first appear.
func MergeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, NewValidationError("items", "cart is empty")
	}

	index := make(map[int64]int, len(lines))
	merged := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, NewValidationError("quantity", "must be positive")
		}
		if i, ok := index[line.ProductID]; ok {
			sum, err := AddQuantities(merged[i].Quantity, line.Quantity)
			if err != nil {
				return nil, err
			}
			merged[i].Quantity = sum
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// AddQuantities sums two positive quantities, refusing a sum that does not
// fit in an int.
func AddQuantities(a, b int) (int, error) {
	if b > math.MaxInt-a {
		return 0, NewValidationError("quantity", "too large")
	}
	return a + b, nil
}

// OrderItem is an immutable snapshot of a purchased product.
type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

// NewOrderItem snapshots name and price from the catalog product.
func NewOrderItem(p Product, quantity int) OrderItem {
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.UnitPrice,
		Quantity:    quantity,
		Subtotal:    p.UnitPrice * int64(quantity),
	}
}

// FulfillmentMode define como o pedido chega ao cliente
type FulfillmentMode string

const (
	FulfillmentHomeDelivery FulfillmentMode = "home_delivery"
	FulfillmentPickup       FulfillmentMode = "pickup"
)

// Fulfillment carries the delivery address or the pickup location.
type Fulfillment struct {
	Mode           FulfillmentMode `json:"mode"`
	Address        string          `json:"address,omitempty"`
	PickupLocation string          `json:"pickup_location,omitempty"`
}

// Validate enforces that exactly the field matching the mode is present.
// An empty allowed list accepts any pickup location.
func (f Fulfillment) Validate(allowedLocations []string) error {
	switch f.Mode {
	case FulfillmentHomeDelivery:
		if f.Address == "" {
			return NewValidationError("address", "is required for home delivery")
		}
		if f.PickupLocation != "" {
			return NewValidationError("pickup_location", "must be empty for home delivery")
		}
	case FulfillmentPickup:
		if f.PickupLocation == "" {
			return NewValidationError("pickup_location", "is required for pickup")
		}
		if f.Address != "" {
			return NewValidationError("address", "must be empty for pickup")
		}
		if len(allowedLocations) > 0 && !contains(allowedLocations, f.PickupLocation) {
			return NewValidationError("pickup_location", "unknown location "+f.PickupLocation)
		}
	default:
		return NewValidationError("mode", "must be home_delivery or pickup")
	}
	return nil
}

// Customer identifies who placed the order.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Validate requires both name and phone.
func (c Customer) Validate() error {
	if c.Name == "" {
		return NewValidationError("customer.name", "is required")
	}
	if c.Phone == "" {
		return NewValidationError("customer.phone", "is required")
	}
	return nil
}

// Order representa um pedido no sistema
type Order struct {
	ID           string      `json:"id" db:"id"`
	Date         string      `json:"date" db:"order_date"`
	CustomerName string      `json:"customer_name" db:"customer_name"`
	Phone        string      `json:"phone" db:"phone"`
	Fulfillment  Fulfillment `json:"fulfillment"`
	Items        []OrderItem `json:"items" db:"items"`
	ShippingFee  int64       `json:"shipping_fee" db:"shipping_fee"`
	Total        int64       `json:"total" db:"total"`
	Status       Status      `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// NewOrder builds a pending order and prices it with the given policy.
func NewOrder(id string, createdAt time.Time, customer Customer, fulfillment Fulfillment, items []OrderItem, pricing ShippingPolicy) *Order {
	subtotal := SumSubtotals(items)
	fee := pricing.FeeFor(subtotal)

	return &Order{
		ID:           id,
		Date:         FormatDate(createdAt),
		CustomerName: customer.Name,
		Phone:        customer.Phone,
		Fulfillment:  fulfillment,
		Items:        items,
		ShippingFee:  fee,
		Total:        subtotal + fee,
		Status:       StatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// Subtotal is the sum of item subtotals, shipping excluded.
func (o *Order) Subtotal() int64 {
	return SumSubtotals(o.Items)
}

// IsPickup reports whether the order is collected at a location.
func (o *Order) IsPickup() bool {
	return o.Fulfillment.Mode == FulfillmentPickup
}

// SumSubtotals adds up item subtotals.
func SumSubtotals(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal
	}
	return total
}

// MovementType representa os tipos de movimentação de estoque
type MovementType string

const (
	MovementTypeDecreased MovementType = "decreased"
	MovementTypeIncreased MovementType = "increased"
)

// StockMovement is one journal entry of a stock change.
type StockMovement struct {
	ID        string       `json:"id" db:"id"`
	ProductID int64        `json:"product_id" db:"product_id"`
	OrderID   string       `json:"order_id,omitempty" db:"order_id"`
	Change    int          `json:"change" db:"change_quantity"`
	Type      MovementType `json:"type" db:"movement_type"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// MovementTypeFor classifies a stock delta.
func MovementTypeFor(delta int) MovementType {
	if delta < 0 {
		return MovementTypeDecreased
	}
	return MovementTypeIncreased
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
