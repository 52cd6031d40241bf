// Package inventory reserves and returns stock on behalf of orders. All
// changes go through catalog.Store.AdjustStock.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/catalog"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// Reserved is one reserved line with the product as it was when locked.
type Reserved struct {
	Product  domain.Product
	Quantity int
}

// Reservation lists the lines taken from stock for an order, in the order
// products first appeared in the cart.
type Reservation struct {
	OrderID string
	Lines   []Reserved
}

// Items snapshots the reserved products into order items.
func (r *Reservation) Items() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(r.Lines))
	for _, line := range r.Lines {
		items = append(items, domain.NewOrderItem(line.Product, line.Quantity))
	}
	return items
}

// Ledger contém a lógica de reserva e reposição de estoque
type Ledger struct {
	catalog    catalog.Store
	transactor storage.Transactor
	logger     *zap.Logger
	tracer     trace.Tracer
	restocks   metric.Int64Counter
}

// NewLedger cria uma nova instância de Ledger
func NewLedger(
	store catalog.Store,
	transactor storage.Transactor,
	logger *zap.Logger,
	tracer trace.Tracer,
	meter metric.Meter,
) (*Ledger, error) {
	restocks, err := meter.Int64Counter("inventory.restocks",
		metric.WithDescription("Units added to stock by restock operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create restock counter: %w", err)
	}

	return &Ledger{
		catalog:    store,
		transactor: transactor,
		logger:     logger,
		tracer:     tracer,
		restocks:   restocks,
	}, nil
}

// ReserveForOrder decrements stock for every line inside tx, or for none.
// All lines are checked against locked rows before any stock moves. On error
// the caller must roll tx back.
func (l *Ledger) ReserveForOrder(ctx context.Context, tx storage.Tx, orderID string, lines []domain.CartLine) (*Reservation, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.ReserveForOrder",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	merged, err := domain.MergeLines(lines)
	if err != nil {
		return nil, err
	}

	// 1. Lock em ordem crescente de id para evitar deadlock
	locked := make(map[int64]*domain.Product, len(merged))
	for _, id := range ascendingIDs(merged) {
		p, err := l.catalog.GetForUpdate(ctx, tx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lock failed")
			return nil, err
		}
		locked[id] = p
	}

	// 2. Valida todas as linhas antes de tocar no estoque
	for _, line := range merged {
		p := locked[line.ProductID]
		if p.Stock < line.Quantity {
			err := &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.Stock,
			}
			l.logger.Info("[RESERVE] insufficient stock",
				zap.String("order_id", orderID),
				zap.Int64("product_id", line.ProductID),
				zap.Int("requested", line.Quantity),
				zap.Int("available", p.Stock))
			span.RecordError(err)
			span.SetStatus(codes.Error, "insufficient stock")
			return nil, err
		}
	}

	// 3. Decrementa
	reservation := &Reservation{OrderID: orderID, Lines: make([]Reserved, 0, len(merged))}
	for _, line := range merged {
		if _, err := l.catalog.AdjustStock(ctx, tx, line.ProductID, -line.Quantity, orderID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decrement failed")
			return nil, err
		}
		reservation.Lines = append(reservation.Lines, Reserved{
			Product:  *locked[line.ProductID],
			Quantity: line.Quantity,
		})
	}

	l.logger.Debug("[RESERVE] stock reserved",
		zap.String("order_id", orderID), zap.Int("lines", len(merged)))
	return reservation, nil
}

// Release puts an order's quantities back into stock inside tx.
func (l *Ledger) Release(ctx context.Context, tx storage.Tx, orderID string, items []domain.OrderItem) error {
	ctx, span := l.tracer.Start(ctx, "inventory.Release",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	merged, err := domain.MergeLines(lines)
	if err != nil {
		return err
	}
	qty := make(map[int64]int, len(merged))
	for _, line := range merged {
		qty[line.ProductID] = line.Quantity
	}

	for _, id := range ascendingIDs(merged) {
		if _, err := l.catalog.GetForUpdate(ctx, tx, id); err != nil {
			span.RecordError(err)
			return err
		}
		if _, err := l.catalog.AdjustStock(ctx, tx, id, qty[id], orderID); err != nil {
			span.RecordError(err)
			return err
		}
	}

	l.logger.Info("[RELEASE] stock returned", zap.String("order_id", orderID), zap.Int("lines", len(merged)))
	return nil
}

// Restock adds quantity units to a product in its own transaction and
// returns the new stock.
func (l *Ledger) Restock(ctx context.Context, productID int64, quantity int) (int, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.Restock",
		trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	if quantity <= 0 {
		return 0, domain.NewValidationError("quantity", "must be positive")
	}

	// 1. Inicia a transação
	tx, err := l.transactor.BeginTx(ctx)
	if err != nil {
		return 0, domain.PersistenceError("erro ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 2. Lock pessimista
	if _, err := l.catalog.GetForUpdate(ctx, tx, productID); err != nil {
		span.RecordError(err)
		return 0, err
	}

	// 3. Aumenta o estoque e registra o movimento
	stock, err := l.catalog.AdjustStock(ctx, tx, productID, quantity, "")
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	// 4. Commit da transação
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return 0, domain.PersistenceError("erro ao comitar restock", err)
	}

	l.restocks.Add(ctx, int64(quantity), metric.WithAttributes(attribute.Int64("product.id", productID)))
	l.logger.Info("[RESTOCK] success",
		zap.Int64("product_id", productID), zap.Int("quantity", quantity), zap.Int("stock", stock))
	return stock, nil
}

func ascendingIDs(lines []domain.CartLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
