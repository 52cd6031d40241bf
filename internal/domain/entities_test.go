package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder_TotalIncludesShippingFee(t *testing.T) {
	// Arrange
	productA := Product{ID: 1, Name: "A", UnitPrice: 100}
	productB := Product{ID: 2, Name: "B", UnitPrice: 50}
	items := []OrderItem{NewOrderItem(productA, 2), NewOrderItem(productB, 1)}
	createdAt := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	// Act
	order := NewOrder("ORD20250314103000-001", createdAt,
		Customer{Name: "Lin", Phone: "0912"},
		Fulfillment{Mode: FulfillmentHomeDelivery, Address: "Taipei"},
		items, DefaultShippingPolicy())

	// Assert
	assert.Equal(t, int64(250), order.Subtotal())
	assert.Equal(t, int64(150), order.ShippingFee)
	assert.Equal(t, int64(400), order.Total)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "2025-03-14", order.Date)
	assert.Equal(t, createdAt, order.CreatedAt)
}

func TestNewOrder_FreeShippingAtThreshold(t *testing.T) {
	product := Product{ID: 1, Name: "Crab", UnitPrice: 1000}
	items := []OrderItem{NewOrderItem(product, 3)}

	order := NewOrder("ORD1", time.Now(), Customer{Name: "a", Phone: "b"},
		Fulfillment{Mode: FulfillmentPickup, PickupLocation: "East Gate Market"},
		items, DefaultShippingPolicy())

	assert.Equal(t, int64(0), order.ShippingFee)
	assert.Equal(t, int64(3000), order.Total)
}

func TestNewOrderItem_SnapshotsNameAndPrice(t *testing.T) {
	product := Product{ID: 7, Name: "Salmon", UnitPrice: 299}

	item := NewOrderItem(product, 3)
	product.Name = "Renamed"
	product.UnitPrice = 1

	assert.Equal(t, "Salmon", item.ProductName)
	assert.Equal(t, int64(299), item.UnitPrice)
	assert.Equal(t, int64(897), item.Subtotal)
}

func TestShippingPolicy_FeeFor(t *testing.T) {
	policy := DefaultShippingPolicy()

	tests := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{"below threshold", 2999, 150},
		{"at threshold", 3000, 0},
		{"above threshold", 5000, 0},
		{"empty", 0, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.FeeFor(tt.subtotal))
		})
	}
}

func TestMergeLines(t *testing.T) {
	merged, err := MergeLines([]CartLine{
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, []CartLine{{ProductID: 2, Quantity: 4}, {ProductID: 1, Quantity: 2}}, merged)
}

func TestMergeLines_Rejects(t *testing.T) {
	_, err := MergeLines(nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = MergeLines([]CartLine{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMergeLines_RejectsQuantityOverflow(t *testing.T) {
	// Act
	merged, err := MergeLines([]CartLine{
		{ProductID: 1, Quantity: math.MaxInt},
		{ProductID: 1, Quantity: math.MaxInt},
	})

	// Assert
	assert.Nil(t, merged)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "quantity", verr.Field)
}

func TestAddQuantities(t *testing.T) {
	sum, err := AddQuantities(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)

	sum, err = AddQuantities(math.MaxInt-1, 1)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, sum)

	_, err = AddQuantities(math.MaxInt, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFulfillment_Validate(t *testing.T) {
	locations := []string{"South Gate Market", "East Gate Market"}

	tests := []struct {
		name        string
		fulfillment Fulfillment
		wantField   string
	}{
		{"delivery ok", Fulfillment{Mode: FulfillmentHomeDelivery, Address: "Road 1"}, ""},
		{"delivery without address", Fulfillment{Mode: FulfillmentHomeDelivery}, "address"},
		{"delivery with location", Fulfillment{Mode: FulfillmentHomeDelivery, Address: "x", PickupLocation: "East Gate Market"}, "pickup_location"},
		{"pickup ok", Fulfillment{Mode: FulfillmentPickup, PickupLocation: "East Gate Market"}, ""},
		{"pickup without location", Fulfillment{Mode: FulfillmentPickup}, "pickup_location"},
		{"pickup unknown location", Fulfillment{Mode: FulfillmentPickup, PickupLocation: "Moon"}, "pickup_location"},
		{"pickup with address", Fulfillment{Mode: FulfillmentPickup, PickupLocation: "East Gate Market", Address: "x"}, "address"},
		{"unknown mode", Fulfillment{Mode: "drone"}, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fulfillment.Validate(locations)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestErrors_MatchSentinels(t *testing.T) {
	stockErr := error(&InsufficientStockError{ProductID: 1, Requested: 2, Available: 1})
	transitionErr := error(&IllegalTransitionError{OrderID: "x", From: StatusCompleted, To: StatusProcessing})

	assert.ErrorIs(t, stockErr, ErrInsufficientStock)
	assert.ErrorIs(t, transitionErr, ErrIllegalTransition)
	assert.ErrorIs(t, NotFoundError("product", 9), ErrNotFound)
	assert.ErrorIs(t, PersistenceError("commit", errors.New("boom")), ErrPersistence)
	assert.ErrorIs(t, CorruptStateError("items", nil), ErrCorruptState)
	assert.NotErrorIs(t, stockErr, ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("lost")
	assert.ErrorIs(t, err, ErrValidation)

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}
