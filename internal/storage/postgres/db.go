// Package postgres is the durable backend: a pgx connection pool, the Tx
// wrapper the stores type-assert on, and the embedded schema migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/storage"
)

// Config holds the connection settings of the orders database.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN renders the pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

// ConnectAttempts is how many pings Connect tries before giving up.
const ConnectAttempts = 30

// DB wraps the pool and starts transactions for the stores.
type DB struct {
	Pool *pgxpool.Pool
}

var _ storage.Transactor = (*DB)(nil)

// Connect opens the pool and waits until the database answers.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 30
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < ConnectAttempts; i++ {
		if err := pool.Ping(ctx); err == nil {
			logger.Info("connected to orders database")
			return &DB{Pool: pool}, nil
		}
		logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("max", ConnectAttempts))

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after %d attempts", ConnectAttempts)
}

// Close releases every pooled connection.
func (d *DB) Close() {
	d.Pool.Close()
}

// BeginTx inicia uma nova transação
func (d *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

// PostgresTx implementa a interface Tx
type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) Commit() error {
	return t.tx.Commit(context.Background())
}

// Rollback is a no-op once the transaction has been committed.
func (t *PostgresTx) Rollback() error {
	err := t.tx.Rollback(context.Background())
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// ErrForeignTx is returned when a store receives a Tx from another backend.
var ErrForeignTx = errors.New("transaction does not belong to the postgres backend")

// Unwrap returns the pgx transaction behind tx.
func Unwrap(tx storage.Tx) (pgx.Tx, error) {
	pgTx, ok := tx.(*PostgresTx)
	if !ok {
		return nil, ErrForeignTx
	}
	return pgTx.tx, nil
}
