// Package analytics derives restocking demand and sales views from order
// history. Every call reads a fresh snapshot; nothing is cached.
package analytics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
)

// liveStatuses are the statuses counted as sales. Cancelled orders are not.
var liveStatuses = []domain.Status{
	domain.StatusPending,
	domain.StatusProcessing,
	domain.StatusShipped,
	domain.StatusCompleted,
}

// Engine answers the aggregate queries.
type Engine struct {
	orders orders.Store
	tracer trace.Tracer
}

// NewEngine cria uma nova instância de Engine
func NewEngine(store orders.Store, tracer trace.Tracer) *Engine {
	return &Engine{orders: store, tracer: tracer}
}

// RestockingDemand sums the pickup quantities of date per location and
// product. A date without pickup orders yields an empty report.
func (e *Engine) RestockingDemand(ctx context.Context, date string) (*DemandReport, error) {
	ctx, span := e.tracer.Start(ctx, "analytics.RestockingDemand",
		trace.WithAttributes(attribute.String("date", date)))
	defer span.End()

	if _, err := domain.ParseDate("date", date); err != nil {
		return nil, err
	}

	list, err := e.orders.List(ctx, orders.Filter{
		From:     date,
		To:       date,
		Mode:     domain.FulfillmentPickup,
		Statuses: liveStatuses,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return buildDemand(date, list), nil
}

// SalesAnalytics flattens the non-cancelled orders between from and to
// (inclusive) into sales records and the views built on them.
func (e *Engine) SalesAnalytics(ctx context.Context, from, to string) (*SalesReport, error) {
	ctx, span := e.tracer.Start(ctx, "analytics.SalesAnalytics",
		trace.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
	defer span.End()

	filter := orders.Filter{From: from, To: to, Statuses: liveStatuses}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	list, err := e.orders.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return buildSales(from, to, list), nil
}
