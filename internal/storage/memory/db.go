// Package memory is a non-durable transactional backend for development and
// tests. A Tx takes per-entity locks, stages its writes and applies them in
// one step on Commit, so readers only ever observe committed state.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

var (
	// ErrForeignTx is returned when a store receives a Tx from another backend.
	ErrForeignTx = errors.New("transaction does not belong to the memory backend")
	// ErrTxDone is returned when a finished Tx is used again.
	ErrTxDone = errors.New("transaction already committed or rolled back")
)

// DB is the committed state shared by Catalog and Orders.
type DB struct {
	mu            sync.RWMutex
	products      map[int64]domain.Product
	nextProductID int64
	orders        map[string]domain.Order
	movements     []domain.StockMovement
	locks         *lockManager
	now           func() time.Time
}

var _ storage.Transactor = (*DB)(nil)

// NewDB creates an empty backend.
func NewDB() *DB {
	return &DB{
		products: make(map[int64]domain.Product),
		orders:   make(map[string]domain.Order),
		locks:    newLockManager(),
		now:      time.Now,
	}
}

// BeginTx starts a transaction. It never fails.
func (db *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	return &Tx{
		db:       db,
		held:     make(map[string]struct{}),
		stock:    make(map[int64]int),
		statuses: make(map[string]domain.Status),
	}, nil
}

// Tx stages writes until Commit.
type Tx struct {
	db        *DB
	held      map[string]struct{}
	stock     map[int64]int
	movements []domain.StockMovement
	created   []domain.Order
	statuses  map[string]domain.Status
	done      bool
}

func asTx(tx storage.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, ErrForeignTx
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

// lock acquires the entity lock once; it is held until the Tx finishes.
func (t *Tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.db.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	return nil
}

func (t *Tx) createdOrder(id string) (int, bool) {
	for i := range t.created {
		if t.created[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// Commit applies every staged write atomically and releases the locks.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}

	db := t.db
	db.mu.Lock()
	now := db.now()
	for id, qty := range t.stock {
		p := db.products[id]
		p.Stock = qty
		p.UpdatedAt = now
		db.products[id] = p
	}
	db.movements = append(db.movements, t.movements...)
	for _, o := range t.created {
		db.orders[o.ID] = o
	}
	for id, status := range t.statuses {
		o := db.orders[id]
		o.Status = status
		o.UpdatedAt = now
		db.orders[id] = o
	}
	db.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	for key := range t.held {
		t.db.locks.release(key)
	}
	t.held = nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
