package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/analytics"
	"github.com/matheusmosca/order-inventory-core/internal/cart"
	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/httpapi"
	"github.com/matheusmosca/order-inventory-core/internal/inventory"
	"github.com/matheusmosca/order-inventory-core/internal/lifecycle"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
	"github.com/matheusmosca/order-inventory-core/internal/storage/memory"
)

const pickupLocation = "East Gate Market"

// setupTestAPI sobe a API completa em memória e retorna um Client apontando para ela
func setupTestAPI(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memory.NewDB()
	catalogStore := memory.NewCatalog(db)
	orderStore := memory.NewOrders(db)
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := metricnoop.NewMeterProvider().Meter("test")
	logger := zap.NewNop()

	ledger, err := inventory.NewLedger(catalogStore, db, logger, tracer, meter)
	require.NoError(t, err)
	machine, err := lifecycle.NewMachine(orderStore, ledger, db, nil, logger, tracer, meter)
	require.NoError(t, err)
	service, err := checkout.NewService(ledger, orderStore, db, orders.NewIDGenerator(time.UTC),
		checkout.Config{Pricing: domain.DefaultShippingPolicy(), PickupLocations: []string{pickupLocation}},
		nil, logger, tracer, meter)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	router := httpapi.NewRouter(httpapi.Deps{
		Catalog:   catalogStore,
		Restocker: ledger,
		Checkout:  service,
		Orders:    orderStore,
		Lifecycle: machine,
		Reports:   analytics.NewEngine(orderStore, tracer),
		Carts:     cart.NewStore(rdb, catalogStore, time.Hour, logger),
	}, "test", logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClient_CatalogRoundTrip(t *testing.T) {
	// Arrange
	c := setupTestAPI(t)
	ctx := context.Background()
	require.NoError(t, c.Health(ctx))

	// Act
	p, err := c.SaveProduct(ctx, domain.Product{Name: "Squid", Category: "seafood", UnitPrice: 120, Stock: 1})
	require.NoError(t, err)
	stock, err := c.Restock(ctx, p.ID, 2)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	got, err := c.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	list, err := c.ListProducts(ctx, "seafood")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	movements, err := c.Movements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementTypeIncreased, movements[0].Type)
	assert.Equal(t, 2, movements[0].Change)
	assert.Equal(t, 1, movements[1].Change)
}

func TestClient_OrderFlow(t *testing.T) {
	// Arrange
	c := setupTestAPI(t)
	ctx := context.Background()
	p, err := c.SaveProduct(ctx, domain.Product{Name: "Crab", Category: "seafood", UnitPrice: 1000, Stock: 4})
	require.NoError(t, err)

	// Act
	order, err := c.Checkout(ctx, checkout.Request{
		Lines:       []domain.CartLine{{ProductID: p.ID, Quantity: 3}},
		Customer:    domain.Customer{Name: "Lin", Phone: "0912"},
		Fulfillment: domain.Fulfillment{Mode: domain.FulfillmentPickup, PickupLocation: pickupLocation},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(3000), order.Total)

	fetched, err := c.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)

	shipped, err := c.Transition(ctx, order.ID, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, shipped.Status)

	list, err := c.ListOrders(ctx, OrderQuery{
		Statuses:  []domain.Status{domain.StatusProcessing},
		Locations: []string{pickupLocation},
		Query:     "lin",
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	demand, err := c.RestockingDemand(ctx, order.Date)
	require.NoError(t, err)
	require.Len(t, demand.Totals, 1)
	assert.Equal(t, 3, demand.Totals[0].Quantity)

	sales, err := c.SalesAnalytics(ctx, order.Date, order.Date)
	require.NoError(t, err)
	assert.Equal(t, 1, sales.Summary.Orders)
}

func TestClient_ErrorsMatchDomainSentinels(t *testing.T) {
	c := setupTestAPI(t)
	ctx := context.Background()
	p, err := c.SaveProduct(ctx, domain.Product{Name: "Crab", Category: "seafood", UnitPrice: 1000, Stock: 1})
	require.NoError(t, err)

	_, err = c.GetProduct(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Checkout(ctx, checkout.Request{
		Lines:       []domain.CartLine{{ProductID: p.ID, Quantity: 2}},
		Customer:    domain.Customer{Name: "Lin", Phone: "0912"},
		Fulfillment: domain.Fulfillment{Mode: domain.FulfillmentHomeDelivery, Address: "Harbor Rd 1"},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.Status)
	assert.Equal(t, p.ID, apiErr.ProductID)
	require.NotNil(t, apiErr.Available)
	assert.Equal(t, 1, *apiErr.Available)

	_, err = c.Transition(ctx, "ORD-missing", domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.SalesAnalytics(ctx, "2025-03-10", "2025-03-01")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_CartFlow(t *testing.T) {
	c := setupTestAPI(t)
	ctx := context.Background()
	p, err := c.SaveProduct(ctx, domain.Product{Name: "Squid", Category: "seafood", UnitPrice: 100, Stock: 5})
	require.NoError(t, err)

	crt, err := c.AddCartItem(ctx, "s1", p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductID: p.ID, Quantity: 2}}, crt.Lines)

	_, err = c.AddCartItem(ctx, "s1", p.ID, 9)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	order, err := c.CheckoutCart(ctx, "s1", domain.Customer{Name: "Lin", Phone: "0912"},
		domain.Fulfillment{Mode: domain.FulfillmentHomeDelivery, Address: "Harbor Rd 1"})
	require.NoError(t, err)
	assert.Equal(t, int64(350), order.Total)

	crt, err = c.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, crt.Lines)

	_, err = c.AddCartItem(ctx, "s2", p.ID, 1)
	require.NoError(t, err)
	crt, err = c.RemoveCartItem(ctx, "s2", p.ID)
	require.NoError(t, err)
	assert.Empty(t, crt.Lines)
	require.NoError(t, c.ClearCart(ctx, "s2"))
}
