package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// Orders implements orders.Store on a DB.
type Orders struct {
	db *DB
}

var _ orders.Store = (*Orders)(nil)

// NewOrders cria uma nova instância de Orders
func NewOrders(db *DB) *Orders {
	return &Orders{db: db}
}

// Create salva um novo pedido na transação
func (s *Orders) Create(ctx context.Context, tx storage.Tx, order *domain.Order) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, orderKey(order.ID)); err != nil {
		return domain.PersistenceError("lock order", err)
	}

	s.db.mu.RLock()
	_, exists := s.db.orders[order.ID]
	s.db.mu.RUnlock()
	if _, staged := t.createdOrder(order.ID); exists || staged {
		return fmt.Errorf("order %s: %w", order.ID, orders.ErrDuplicateOrderID)
	}

	t.created = append(t.created, cloneOrder(*order))
	return nil
}

// Get busca um pedido pelo ID
func (s *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, domain.NotFoundError("order", id)
	}
	o = cloneOrder(o)
	return &o, nil
}

// GetForUpdate locks the order for tx and returns it as tx currently sees it.
func (s *Orders) GetForUpdate(ctx context.Context, tx storage.Tx, id string) (*domain.Order, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, orderKey(id)); err != nil {
		return nil, domain.PersistenceError("lock order", err)
	}

	var o *domain.Order
	if i, ok := t.createdOrder(id); ok {
		staged := cloneOrder(t.created[i])
		o = &staged
	} else if o, err = s.Get(ctx, id); err != nil {
		return nil, err
	}
	if status, ok := t.statuses[id]; ok {
		o.Status = status
	}
	return o, nil
}

// UpdateStatus atualiza o status de um pedido na transação
func (s *Orders) UpdateStatus(ctx context.Context, tx storage.Tx, id string, status domain.Status) error {
	if _, err := s.GetForUpdate(ctx, tx, id); err != nil {
		return err
	}
	t := tx.(*Tx)

	if i, ok := t.createdOrder(id); ok {
		t.created[i].Status = status
		return nil
	}
	t.statuses[id] = status
	return nil
}

// List copies the committed orders under one read lock.
func (s *Orders) List(ctx context.Context, filter orders.Filter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	result := []domain.Order{}
	for _, o := range s.db.orders {
		if filter.Matches(&o) {
			result = append(result, cloneOrder(o))
		}
	}
	s.db.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}
