package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/matheusmosca/order-inventory-core/internal/catalog"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// Catalog implements catalog.Store on a DB.
type Catalog struct {
	db *DB
}

var _ catalog.Store = (*Catalog)(nil)

// NewCatalog cria uma nova instância de Catalog
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// Get busca um produto pelo ID
func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	p, ok := c.db.products[id]
	if !ok {
		return nil, domain.NotFoundError("product", id)
	}
	return &p, nil
}

// List lista os produtos da categoria, ordenados por ID
func (c *Catalog) List(ctx context.Context, category string) ([]domain.Product, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	products := []domain.Product{}
	for _, p := range c.db.products {
		if catalog.MatchesCategory(category, p) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// GetForUpdate locks the product for tx and returns it with tx's staged stock.
func (c *Catalog) GetForUpdate(ctx context.Context, tx storage.Tx, id int64) (*domain.Product, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, productKey(id)); err != nil {
		return nil, domain.PersistenceError("lock product", err)
	}

	p, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if staged, ok := t.stock[id]; ok {
		p.Stock = staged
	}
	return p, nil
}

// AdjustStock altera o estoque na transação e registra o movimento
func (c *Catalog) AdjustStock(ctx context.Context, tx storage.Tx, id int64, delta int, orderID string) (int, error) {
	if err := catalog.ValidateDelta(delta); err != nil {
		return 0, err
	}
	p, err := c.GetForUpdate(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	t := tx.(*Tx)

	next := p.Stock + delta
	if next < 0 {
		return 0, &domain.InsufficientStockError{ProductID: id, Requested: -delta, Available: p.Stock}
	}

	t.stock[id] = next
	t.movements = append(t.movements, domain.StockMovement{
		ID:        uuid.New().String(),
		ProductID: id,
		OrderID:   orderID,
		Change:    catalog.Abs(delta),
		Type:      domain.MovementTypeFor(delta),
		CreatedAt: c.db.now(),
	})
	return next, nil
}

// Save insere ou atualiza os metadados de um produto
func (c *Catalog) Save(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	now := c.db.now()
	if product.ID == 0 {
		c.db.nextProductID++
		product.ID = c.db.nextProductID
		product.CreatedAt = now
		product.UpdatedAt = now
		c.db.products[product.ID] = *product
		if product.Stock > 0 {
			c.db.movements = append(c.db.movements, domain.StockMovement{
				ID:        uuid.New().String(),
				ProductID: product.ID,
				Change:    product.Stock,
				Type:      domain.MovementTypeIncreased,
				CreatedAt: now,
			})
		}
		return nil
	}

	existing, ok := c.db.products[product.ID]
	if !ok {
		return domain.NotFoundError("product", product.ID)
	}
	existing.Name = product.Name
	existing.Category = product.Category
	existing.Spec = product.Spec
	existing.Description = product.Description
	existing.UnitPrice = product.UnitPrice
	existing.UpdatedAt = now
	c.db.products[product.ID] = existing
	*product = existing
	return nil
}

// Movements returns the journal newest first.
func (c *Catalog) Movements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	movements := []domain.StockMovement{}
	for i := len(c.db.movements) - 1; i >= 0; i-- {
		if c.db.movements[i].ProductID == productID {
			movements = append(movements, c.db.movements[i])
		}
	}
	return movements, nil
}
