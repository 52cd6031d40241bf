package lifecycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/inventory"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// Notifier is told about every committed transition.
type Notifier interface {
	StatusChanged(ctx context.Context, order *domain.Order, from domain.Status)
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(context.Context, *domain.Order, domain.Status) {}

// Machine aplica transições de status nos pedidos
type Machine struct {
	orders      orders.Store
	ledger      *inventory.Ledger
	transactor  storage.Transactor
	notifier    Notifier
	logger      *zap.Logger
	tracer      trace.Tracer
	transitions metric.Int64Counter
}

// NewMachine cria uma nova instância de Machine. A nil notifier is allowed.
func NewMachine(
	store orders.Store,
	ledger *inventory.Ledger,
	transactor storage.Transactor,
	notifier Notifier,
	logger *zap.Logger,
	tracer trace.Tracer,
	meter metric.Meter,
) (*Machine, error) {
	counter, err := meter.Int64Counter("lifecycle.transitions",
		metric.WithDescription("Committed order status transitions"))
	if err != nil {
		return nil, fmt.Errorf("failed to create transition counter: %w", err)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Machine{
		orders:      store,
		ledger:      ledger,
		transactor:  transactor,
		notifier:    notifier,
		logger:      logger,
		tracer:      tracer,
		transitions: counter,
	}, nil
}

// Transition moves the order to target and returns the updated order.
// Cancelling a pending or processing order returns its stock in the same
// transaction.
func (m *Machine) Transition(ctx context.Context, orderID string, target domain.Status) (*domain.Order, error) {
	ctx, span := m.tracer.Start(ctx, "lifecycle.Transition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(target)),
	))
	defer span.End()

	if _, err := domain.ParseStatus(string(target)); err != nil {
		return nil, err
	}

	// 1. Inicia a transação
	tx, err := m.transactor.BeginTx(ctx)
	if err != nil {
		return nil, domain.PersistenceError("erro ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 2. Lock pessimista no pedido; the check below sees the locked status
	order, err := m.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	from := order.Status

	// 3. Regra de negócio: valida a aresta
	if !CanTransition(from, target) {
		err := &domain.IllegalTransitionError{OrderID: orderID, From: from, To: target}
		m.logger.Info("[TRANSITION] rejected",
			zap.String("order_id", orderID), zap.Stringer("from", from), zap.Stringer("to", target))
		span.RecordError(err)
		span.SetStatus(codes.Error, "illegal transition")
		return nil, err
	}

	if target == domain.StatusCancelled && restocksOnCancel(from) {
		if err := m.ledger.Release(ctx, tx, orderID, order.Items); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := m.orders.UpdateStatus(ctx, tx, orderID, target); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 4. Commit da transação
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, domain.PersistenceError("erro ao comitar transição", err)
	}

	order.Status = target
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(target)),
	))
	m.logger.Info("[TRANSITION] success",
		zap.String("order_id", orderID), zap.Stringer("from", from), zap.Stringer("to", target))
	m.notifier.StatusChanged(ctx, order, from)
	return order, nil
}
