// Package checkout turns a cart into a pending order. Stock reservation and
// order creation share one transaction, so either both happen or neither.
package checkout

import (
	"context"
	"errors"
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

// MaxIDAttempts bounds the retries after an order id collision.
const MaxIDAttempts = 3

// Request is a checkout submission.
type Request struct {
	Lines       []domain.CartLine  `json:"items" binding:"required,dive"`
	Customer    domain.Customer    `json:"customer"`
	Fulfillment domain.Fulfillment `json:"fulfillment"`
}

// Notifier is told about every committed order.
type Notifier interface {
	OrderCreated(ctx context.Context, order *domain.Order)
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(context.Context, *domain.Order) {}

// Config holds the pricing and pickup rules applied at checkout.
type Config struct {
	Pricing         domain.ShippingPolicy
	PickupLocations []string
}

// Service contém a lógica de checkout
type Service struct {
	ledger     *inventory.Ledger
	orders     orders.Store
	transactor storage.Transactor
	ids        *orders.IDGenerator
	cfg        Config
	notifier   Notifier
	logger     *zap.Logger
	tracer     trace.Tracer
	created    metric.Int64Counter
	rejected   metric.Int64Counter
}

// NewService cria uma nova instância de Service. A nil notifier is allowed.
func NewService(
	ledger *inventory.Ledger,
	store orders.Store,
	transactor storage.Transactor,
	ids *orders.IDGenerator,
	cfg Config,
	notifier Notifier,
	logger *zap.Logger,
	tracer trace.Tracer,
	meter metric.Meter,
) (*Service, error) {
	created, err := meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders committed by checkout"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}
	rejected, err := meter.Int64Counter("checkout.rejected.insufficient_stock",
		metric.WithDescription("Checkouts refused for lack of stock"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejection counter: %w", err)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Service{
		ledger:     ledger,
		orders:     store,
		transactor: transactor,
		ids:        ids,
		cfg:        cfg,
		notifier:   notifier,
		logger:     logger,
		tracer:     tracer,
		created:    created,
		rejected:   rejected,
	}, nil
}

// Validate checks the request without touching storage.
func (s *Service) Validate(req Request) error {
	if _, err := domain.MergeLines(req.Lines); err != nil {
		return err
	}
	if err := req.Customer.Validate(); err != nil {
		return err
	}
	return req.Fulfillment.Validate(s.cfg.PickupLocations)
}

// Checkout places the order. It reports success only after the commit.
func (s *Service) Checkout(ctx context.Context, req Request) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(attribute.Int("cart.lines", len(req.Lines))))
	defer span.End()

	if err := s.Validate(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	for attempt := 1; attempt <= MaxIDAttempts; attempt++ {
		order, err := s.place(ctx, req)
		if errors.Is(err, orders.ErrDuplicateOrderID) {
			s.logger.Warn("[CHECKOUT] order id collision, retrying", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				s.rejected.Add(ctx, 1)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout failed")
			s.logger.Info("[CHECKOUT] failed", zap.Error(err))
			return nil, err
		}

		span.SetAttributes(attribute.String("order.id", order.ID))
		s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("fulfillment.mode", string(order.Fulfillment.Mode))))
		s.logger.Info("[CHECKOUT] order placed",
			zap.String("order_id", order.ID), zap.Int64("total", order.Total))
		s.notifier.OrderCreated(ctx, order)
		return order, nil
	}

	err := domain.PersistenceError("allocate order id",
		fmt.Errorf("%d attempts: %w", MaxIDAttempts, orders.ErrDuplicateOrderID))
	span.RecordError(err)
	span.SetStatus(codes.Error, "id collision")
	return nil, err
}

// place runs one checkout attempt in its own transaction.
func (s *Service) place(ctx context.Context, req Request) (*domain.Order, error) {
	id, at := s.ids.Next()

	// 1. Inicia a transação
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, domain.PersistenceError("erro ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 2. Reserva o estoque de todas as linhas
	reservation, err := s.ledger.ReserveForOrder(ctx, tx, id, req.Lines)
	if err != nil {
		return nil, err
	}

	// 3. Cria o pedido com os snapshots da reserva
	order := domain.NewOrder(id, at, req.Customer, req.Fulfillment, reservation.Items(), s.cfg.Pricing)
	if err := s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	// 4. Commit da transação
	if err := tx.Commit(); err != nil {
		return nil, domain.PersistenceError("erro ao comitar checkout", err)
	}
	return order, nil
}
