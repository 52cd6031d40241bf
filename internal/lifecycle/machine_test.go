package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/inventory"
	"github.com/matheusmosca/order-inventory-core/internal/storage/memory"
)

type recordingNotifier struct {
	mu    sync.Mutex
	edges []string
}

func (n *recordingNotifier) StatusChanged(_ context.Context, o *domain.Order, from domain.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edges = append(n.edges, string(from)+"->"+string(o.Status))
}

type fixture struct {
	machine  *Machine
	catalog  *memory.Catalog
	orders   *memory.Orders
	notifier *recordingNotifier
	product  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewDB()
	c := memory.NewCatalog(db)
	o := memory.NewOrders(db)
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := metricnoop.NewMeterProvider().Meter("test")

	ledger, err := inventory.NewLedger(c, db, zap.NewNop(), tracer, meter)
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	machine, err := NewMachine(o, ledger, db, notifier, zap.NewNop(), tracer, meter)
	require.NoError(t, err)

	p := &domain.Product{Name: "A", Category: "fish", UnitPrice: 100, Stock: 5}
	require.NoError(t, c.Save(context.Background(), p))

	f := &fixture{machine: machine, catalog: c, orders: o, notifier: notifier, product: p.ID}

	// place ORD1 for 2 units
	ctx := context.Background()
	tx, _ := db.BeginTx(ctx)
	reservation, err := ledger.ReserveForOrder(ctx, tx, "ORD1", []domain.CartLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	order := domain.NewOrder("ORD1", time.Now(), domain.Customer{Name: "Lin", Phone: "0900"},
		domain.Fulfillment{Mode: domain.FulfillmentHomeDelivery, Address: "Harbor Rd 1"},
		reservation.Items(), domain.DefaultShippingPolicy())
	require.NoError(t, o.Create(ctx, tx, order))
	require.NoError(t, tx.Commit())
	return f
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), f.product)
	require.NoError(t, err)
	return p.Stock
}

func TestCanTransition(t *testing.T) {
	legal := [][2]domain.Status{
		{domain.StatusPending, domain.StatusProcessing},
		{domain.StatusProcessing, domain.StatusShipped},
		{domain.StatusShipped, domain.StatusCompleted},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusProcessing, domain.StatusCancelled},
		{domain.StatusShipped, domain.StatusCancelled},
	}
	for _, from := range domain.AllStatuses {
		for _, to := range domain.AllStatuses {
			want := false
			for _, edge := range legal {
				if edge[0] == from && edge[1] == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, Allowed(domain.StatusCompleted))
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusCancelled}, Allowed(domain.StatusPending))
}

func TestTransition_HappyPath(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()

	// Act
	for _, target := range []domain.Status{domain.StatusProcessing, domain.StatusShipped, domain.StatusCompleted} {
		_, err := f.machine.Transition(ctx, "ORD1", target)
		require.NoError(t, err)
	}

	// Assert
	got, _ := f.orders.Get(ctx, "ORD1")
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, []string{"pending->processing", "processing->shipped", "shipped->completed"}, f.notifier.edges)
	assert.Equal(t, 3, f.stock(t))
}

func TestTransition_CompletedToProcessingIsIllegal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, target := range []domain.Status{domain.StatusProcessing, domain.StatusShipped, domain.StatusCompleted} {
		_, err := f.machine.Transition(ctx, "ORD1", target)
		require.NoError(t, err)
	}

	_, err := f.machine.Transition(ctx, "ORD1", domain.StatusProcessing)

	var transitionErr *domain.IllegalTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.StatusCompleted, transitionErr.From)
	got, _ := f.orders.Get(ctx, "ORD1")
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestTransition_CancelThenProcessingIsIllegal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Transition(ctx, "ORD1", domain.StatusCancelled)
	require.NoError(t, err)
	_, err = f.machine.Transition(ctx, "ORD1", domain.StatusProcessing)

	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	got, _ := f.orders.Get(ctx, "ORD1")
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestTransition_CancelRestocksUnlessShipped(t *testing.T) {
	ctx := context.Background()

	pending := newFixture(t)
	require.Equal(t, 3, pending.stock(t))
	_, err := pending.machine.Transition(ctx, "ORD1", domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, pending.stock(t))

	shipped := newFixture(t)
	_, err = shipped.machine.Transition(ctx, "ORD1", domain.StatusProcessing)
	require.NoError(t, err)
	_, err = shipped.machine.Transition(ctx, "ORD1", domain.StatusShipped)
	require.NoError(t, err)
	_, err = shipped.machine.Transition(ctx, "ORD1", domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 3, shipped.stock(t))
}

func TestTransition_SelfAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Transition(ctx, "ORD1", domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = f.machine.Transition(ctx, "ORD1", "lost")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.machine.Transition(ctx, "missing", domain.StatusProcessing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_ConcurrentCancelsApplyOnce(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.machine.Transition(ctx, "ORD1", domain.StatusCancelled)
		}(i)
	}
	wg.Wait()

	// Assert
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 5, f.stock(t))
}
