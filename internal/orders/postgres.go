package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/storage"
	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
)

const uniqueViolation = "23505"

const orderColumns = `id, order_date, customer_name, phone, fulfillment_mode, address,
	pickup_location, items, shipping_fee, total, status, created_at, updated_at`

// PostgresStore implementa Store usando PostgreSQL
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore cria uma nova instância de PostgresStore
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create insere o pedido dentro da transação
func (s *PostgresStore) Create(ctx context.Context, tx storage.Tx, order *domain.Order) error {
	pgTx, err := postgres.Unwrap(tx)
	if err != nil {
		return err
	}

	orderDate, err := time.Parse(domain.DateLayout, order.Date)
	if err != nil {
		return domain.NewValidationError("date", "must be a date in YYYY-MM-DD format")
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	_, err = pgTx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		order.ID, orderDate, order.CustomerName, order.Phone,
		string(order.Fulfillment.Mode), order.Fulfillment.Address, order.Fulfillment.PickupLocation,
		itemsJSON, order.ShippingFee, order.Total, string(order.Status),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("order %s: %w", order.ID, ErrDuplicateOrderID)
		}
		return domain.PersistenceError("failed to insert order", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		orderDate time.Time
		mode      string
		status    string
		itemsJSON []byte
	)
	err := row.Scan(&o.ID, &orderDate, &o.CustomerName, &o.Phone, &mode,
		&o.Fulfillment.Address, &o.Fulfillment.PickupLocation, &itemsJSON,
		&o.ShippingFee, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Date = orderDate.Format(domain.DateLayout)
	o.Fulfillment.Mode = domain.FulfillmentMode(mode)
	o.Status = domain.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, domain.CorruptStateError("order "+o.ID+" items", err)
	}
	if err := CheckDecoded(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Get busca um pedido pelo id
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	return o, readError(err, id)
}

// GetForUpdate obtém o pedido com lock pessimista (FOR UPDATE)
func (s *PostgresStore) GetForUpdate(ctx context.Context, tx storage.Tx, id string) (*domain.Order, error) {
	pgTx, err := postgres.Unwrap(tx)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(pgTx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	return o, readError(err, id)
}

func readError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.NotFoundError("order", id)
	case errors.Is(err, domain.ErrCorruptState):
		return err
	default:
		return domain.PersistenceError("failed to read order", err)
	}
}

// UpdateStatus atualiza o status do pedido
func (s *PostgresStore) UpdateStatus(ctx context.Context, tx storage.Tx, id string, status domain.Status) error {
	pgTx, err := postgres.Unwrap(tx)
	if err != nil {
		return err
	}

	tag, err := pgTx.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, string(status), id)
	if err != nil {
		return domain.PersistenceError("failed to update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError("order", id)
	}
	return nil
}

// List runs the filter as a single statement, so the result is one snapshot.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildListQuery(filter)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceError("list orders", err)
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			if errors.Is(err, domain.ErrCorruptState) {
				return nil, err
			}
			return nil, domain.PersistenceError("scan order", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list orders", err)
	}
	return result, nil
}

func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Validate has already checked the date layout.
	if from, err := time.Parse(domain.DateLayout, f.From); err == nil {
		where = append(where, "order_date >= "+arg(from))
	}
	if to, err := time.Parse(domain.DateLayout, f.To); err == nil {
		where = append(where, "order_date <= "+arg(to))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if len(f.PickupLocations) > 0 {
		where = append(where, "pickup_location = ANY("+arg(f.PickupLocations)+")")
	}
	if f.Mode != "" {
		where = append(where, "fulfillment_mode = "+arg(string(f.Mode)))
	}
	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		where = append(where, "(id ILIKE "+p+" OR customer_name ILIKE "+p+")")
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
