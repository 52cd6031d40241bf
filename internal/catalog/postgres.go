package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
)

const productColumns = `id, name, category, spec, description, unit_price, stock, created_at, updated_at`

// PostgresStore implementa Store usando PostgreSQL
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore cria uma nova instância de PostgresStore
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Spec, &p.Description,
		&p.UnitPrice, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get busca um produto pelo id
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("product", id)
	}
	if err != nil {
		return nil, domain.PersistenceError("get product", err)
	}
	return p, nil
}

// List returns products of a category ordered by id.
func (s *PostgresStore) List(ctx context.Context, category string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if category != "" && category != AllCategories {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceError("list products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.PersistenceError("scan product", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list products", err)
	}
	return products, nil
}

// GetForUpdate obtém o produto com lock pessimista (FOR UPDATE)
func (s *PostgresStore) GetForUpdate(ctx context.Context, tx storage.Tx, id int64) (*domain.Product, error) {
	pgTx, err := postgres.Unwrap(tx)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(pgTx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("product", id)
	}
	if err != nil {
		return nil, domain.PersistenceError("failed to get product with lock", err)
	}
	return p, nil
}

// AdjustStock altera o estoque e registra o movimento
func (s *PostgresStore) AdjustStock(ctx context.Context, tx storage.Tx, id int64, delta int, orderID string) (int, error) {
	if err := ValidateDelta(delta); err != nil {
		return 0, err
	}
	pgTx, err := postgres.Unwrap(tx)
	if err != nil {
		return 0, err
	}

	// 1. Atualiza o estoque; the guard refuses to go below zero
	var stock int
	err = pgTx.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $1,
		    updated_at = NOW()
		WHERE id = $2 AND stock + $1 >= 0
		RETURNING stock
	`, delta, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.refusal(ctx, pgTx, id, delta)
	}
	if err != nil {
		return 0, domain.PersistenceError("failed to adjust stock", err)
	}

	// 2. Insere o registro de movimentação
	_, err = pgTx.Exec(ctx, `
		INSERT INTO inventory_movements (id, product_id, order_id, change_quantity, movement_type)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), id, orderID, Abs(delta), string(domain.MovementTypeFor(delta)))
	if err != nil {
		return 0, domain.PersistenceError("failed to insert movement record", err)
	}

	return stock, nil
}

// refusal explains why the guarded update matched no row.
func (s *PostgresStore) refusal(ctx context.Context, pgTx pgx.Tx, id int64, delta int) error {
	var available int
	err := pgTx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundError("product", id)
	}
	if err != nil {
		return domain.PersistenceError("failed to read stock", err)
	}
	return &domain.InsufficientStockError{ProductID: id, Requested: -delta, Available: available}
}

// Save insere ou atualiza os metadados de um produto
func (s *PostgresStore) Save(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	if product.ID == 0 {
		return s.insert(ctx, product)
	}

	err := s.db.QueryRow(ctx, `
		UPDATE products
		SET name = $1, category = $2, spec = $3, description = $4, unit_price = $5,
		    updated_at = NOW()
		WHERE id = $6
		RETURNING stock, created_at, updated_at
	`, product.Name, product.Category, product.Spec, product.Description,
		product.UnitPrice, product.ID).Scan(&product.Stock, &product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundError("product", product.ID)
	}
	if err != nil {
		return domain.PersistenceError("failed to update product", err)
	}
	return nil
}

// insert cria o produto e registra o estoque inicial como movimento
func (s *PostgresStore) insert(ctx context.Context, product *domain.Product) error {
	// 1. Inicia a transação
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.PersistenceError("erro ao iniciar transação", err)
	}
	defer tx.Rollback(ctx)

	// 2. Insere o produto
	err = tx.QueryRow(ctx, `
		INSERT INTO products (name, category, spec, description, unit_price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, product.Name, product.Category, product.Spec, product.Description,
		product.UnitPrice, product.Stock).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return domain.PersistenceError("failed to insert product", err)
	}

	// 3. Registra o estoque inicial
	if product.Stock > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_movements (id, product_id, order_id, change_quantity, movement_type)
			VALUES ($1, $2, '', $3, $4)
		`, uuid.New().String(), product.ID, product.Stock, string(domain.MovementTypeIncreased))
		if err != nil {
			return domain.PersistenceError("failed to insert opening movement", err)
		}
	}

	// 4. Commit da transação
	if err := tx.Commit(ctx); err != nil {
		return domain.PersistenceError("failed to commit product insert", err)
	}
	return nil
}

// Movements lists the stock journal of a product, newest first.
func (s *PostgresStore) Movements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, product_id, order_id, change_quantity, movement_type, created_at
		FROM inventory_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id
	`, productID)
	if err != nil {
		return nil, domain.PersistenceError("list movements", err)
	}
	defer rows.Close()

	movements := []domain.StockMovement{}
	for rows.Next() {
		var m domain.StockMovement
		var movementType string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.Change, &movementType, &m.CreatedAt); err != nil {
			return nil, domain.PersistenceError("scan movement", err)
		}
		m.Type = domain.MovementType(movementType)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list movements", err)
	}
	return movements, nil
}
