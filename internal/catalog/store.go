// Package catalog owns products and is the only path through which stock
// changes. Every change is journaled as a stock movement.
package catalog

import (
	"context"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// AllCategories selects every product in List.
const AllCategories = "all"

// Store define a interface para operações de banco de dados do catálogo
type Store interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, category string) ([]domain.Product, error)
	GetForUpdate(ctx context.Context, tx storage.Tx, id int64) (*domain.Product, error)
	// AdjustStock applies delta and returns the new quantity. A decrement
	// below zero is refused with *domain.InsufficientStockError.
	AdjustStock(ctx context.Context, tx storage.Tx, id int64, delta int, orderID string) (int, error)
	// Save inserts a product (assigning its ID when zero and unknown) or
	// updates the metadata of an existing one. Stock of an existing product
	// is left untouched.
	Save(ctx context.Context, product *domain.Product) error
	Movements(ctx context.Context, productID int64) ([]domain.StockMovement, error)
}

// MatchesCategory reports whether p belongs to the requested category.
func MatchesCategory(category string, p domain.Product) bool {
	return category == "" || category == AllCategories || p.Category == category
}

// ValidateDelta rejects a zero stock change.
func ValidateDelta(delta int) error {
	if delta == 0 {
		return domain.NewValidationError("delta", "must not be zero")
	}
	return nil
}

// Abs returns the magnitude journaled for a stock delta.
func Abs(delta int) int {
	if delta < 0 {
		return -delta
	}
	return delta
}
