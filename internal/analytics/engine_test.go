package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
	"github.com/matheusmosca/order-inventory-core/internal/storage/memory"
)

var (
	squid = domain.Product{ID: 1, Name: "Squid", UnitPrice: 100}
	crab  = domain.Product{ID: 2, Name: "Crab", UnitPrice: 1000}
)

type orderSeed struct {
	id       string
	at       time.Time
	customer domain.Customer
	location string
	status   domain.Status
	items    []domain.OrderItem
}

func seedOrders(t *testing.T, seeds ...orderSeed) *memory.Orders {
	t.Helper()
	db := memory.NewDB()
	store := memory.NewOrders(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	for _, s := range seeds {
		fulfillment := domain.Fulfillment{Mode: domain.FulfillmentHomeDelivery, Address: "Harbor Rd 1"}
		if s.location != "" {
			fulfillment = domain.Fulfillment{Mode: domain.FulfillmentPickup, PickupLocation: s.location}
		}
		o := domain.NewOrder(s.id, s.at, s.customer, fulfillment, s.items, domain.DefaultShippingPolicy())
		if s.status != "" {
			o.Status = s.status
		}
		require.NoError(t, store.Create(ctx, tx, o))
	}
	require.NoError(t, tx.Commit())
	return store
}

func day(d, hour int) time.Time {
	return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
}

var (
	lin  = domain.Customer{Name: "Lin", Phone: "0911"}
	chen = domain.Customer{Name: "Chen", Phone: "0922"}
)

func TestRestockingDemand_GroupsByLocationAndProduct(t *testing.T) {
	// Arrange
	store := seedOrders(t,
		orderSeed{id: "O1", at: day(1, 9), customer: lin, location: "East Gate Market",
			items: []domain.OrderItem{domain.NewOrderItem(squid, 2), domain.NewOrderItem(crab, 1)}},
		orderSeed{id: "O2", at: day(1, 10), customer: chen, location: "East Gate Market",
			items: []domain.OrderItem{domain.NewOrderItem(squid, 3)}},
		orderSeed{id: "O3", at: day(1, 11), customer: chen, location: "Harbor Market",
			items: []domain.OrderItem{domain.NewOrderItem(crab, 4)}},
		orderSeed{id: "O4", at: day(1, 12), customer: lin, location: "Harbor Market", status: domain.StatusCancelled,
			items: []domain.OrderItem{domain.NewOrderItem(crab, 9)}},
		orderSeed{id: "O5", at: day(1, 13), customer: lin,
			items: []domain.OrderItem{domain.NewOrderItem(squid, 7)}},
		orderSeed{id: "O6", at: day(2, 9), customer: lin, location: "Harbor Market",
			items: []domain.OrderItem{domain.NewOrderItem(squid, 5)}},
	)
	engine := NewEngine(store, tracenoop.NewTracerProvider().Tracer("test"))

	// Act
	report, err := engine.RestockingDemand(context.Background(), "2025-03-01")

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Locations, 2)

	east := report.Locations[0]
	assert.Equal(t, "East Gate Market", east.Location)
	assert.Equal(t, []DemandLine{{1, "Squid", 5}, {2, "Crab", 1}}, east.Products)
	assert.Equal(t, 6, east.Quantity)

	harbor := report.Locations[1]
	assert.Equal(t, []DemandLine{{2, "Crab", 4}}, harbor.Products)

	assert.Equal(t, []DemandLine{{1, "Squid", 5}, {2, "Crab", 5}}, report.Totals)
}

func TestRestockingDemand_EmptyDayIsNotAnError(t *testing.T) {
	store := seedOrders(t, orderSeed{id: "O1", at: day(1, 9), customer: lin,
		items: []domain.OrderItem{domain.NewOrderItem(squid, 1)}})
	engine := NewEngine(store, tracenoop.NewTracerProvider().Tracer("test"))

	report, err := engine.RestockingDemand(context.Background(), "2025-03-01")

	require.NoError(t, err)
	assert.Empty(t, report.Locations)
	assert.Empty(t, report.Totals)

	_, err = engine.RestockingDemand(context.Background(), "March 1st")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSalesAnalytics(t *testing.T) {
	// Arrange
	store := seedOrders(t,
		orderSeed{id: "O1", at: day(1, 9), customer: lin, location: "East Gate Market",
			items: []domain.OrderItem{domain.NewOrderItem(squid, 2)}},
		orderSeed{id: "O2", at: day(1, 10), customer: chen,
			items: []domain.OrderItem{domain.NewOrderItem(crab, 1)}},
		orderSeed{id: "O3", at: day(3, 9), customer: lin,
			items: []domain.OrderItem{domain.NewOrderItem(crab, 3)}},
		orderSeed{id: "O4", at: day(3, 10), customer: chen, status: domain.StatusCancelled,
			items: []domain.OrderItem{domain.NewOrderItem(squid, 50)}},
		orderSeed{id: "O5", at: day(9, 10), customer: chen,
			items: []domain.OrderItem{domain.NewOrderItem(squid, 1)}},
	)
	engine := NewEngine(store, tracenoop.NewTracerProvider().Tracer("test"))

	// Act
	report, err := engine.SalesAnalytics(context.Background(), "2025-03-01", "2025-03-05")

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Records, 3)
	assert.Equal(t, "2025-03-01", report.Records[0].Date)

	require.Len(t, report.Trend, 2)
	assert.Equal(t, TrendPoint{Date: "2025-03-01", Orders: 2, Units: 3, Revenue: 1200}, report.Trend[0])
	assert.Equal(t, TrendPoint{Date: "2025-03-03", Orders: 1, Units: 3, Revenue: 3000}, report.Trend[1])

	require.Len(t, report.Ranking, 2)
	assert.Equal(t, "Crab", report.Ranking[0].ProductName)
	assert.Equal(t, int64(4000), report.Ranking[0].Revenue)
	assert.InDelta(t, 95.238, report.Ranking[0].SharePct, 0.001)
	assert.InDelta(t, 4.762, report.Ranking[1].SharePct, 0.001)

	require.Len(t, report.Customers, 2)
	assert.Equal(t, CustomerStat{Name: "Lin", Phone: "0911", Orders: 2, TotalSpend: 350 + 3000}, report.Customers[0])
	assert.Equal(t, 0.5, report.RepeatPurchaseRate)

	assert.Equal(t, 3, report.Summary.Orders)
	assert.Equal(t, int64(4200), report.Summary.Revenue)
	assert.InDelta(t, 1400.0, report.Summary.AverageOrderValue, 0.001)
	assert.Equal(t, 6, report.Summary.Units)
	require.NotNil(t, report.Summary.GrowthPct)
	assert.InDelta(t, 150.0, *report.Summary.GrowthPct, 0.001)
}

func TestSalesAnalytics_EmptyAndInvalidRange(t *testing.T) {
	engine := NewEngine(seedOrders(t), tracenoop.NewTracerProvider().Tracer("test"))

	report, err := engine.SalesAnalytics(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Zero(t, report.RepeatPurchaseRate)
	assert.Nil(t, report.Summary.GrowthPct)

	_, err = engine.SalesAnalytics(context.Background(), "2025-03-05", "2025-03-01")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type brokenStore struct{ orders.Store }

func (brokenStore) List(context.Context, orders.Filter) ([]domain.Order, error) {
	return nil, domain.CorruptStateError("order O1 items", errors.New("bad json"))
}

func TestEngine_PropagatesCorruptState(t *testing.T) {
	engine := NewEngine(brokenStore{}, tracenoop.NewTracerProvider().Tracer("test"))

	_, err := engine.RestockingDemand(context.Background(), "2025-03-01")
	assert.ErrorIs(t, err, domain.ErrCorruptState)
	_, err = engine.SalesAnalytics(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}
