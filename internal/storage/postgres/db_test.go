package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres/postgrestest"
)

type foreignTx struct{}

func (foreignTx) Commit() error   { return nil }
func (foreignTx) Rollback() error { return nil }

func TestConfig_DSN(t *testing.T) {
	cfg := postgres.Config{Host: "db", Port: "5432", User: "u", Password: "p", Name: "orders"}

	assert.Equal(t, "postgres://u:p@db:5432/orders?sslmode=disable", cfg.DSN())
}

func TestUnwrap_RejectsForeignTx(t *testing.T) {
	_, err := postgres.Unwrap(foreignTx{})

	assert.ErrorIs(t, err, postgres.ErrForeignTx)
}

func TestMigrate_CreatesSchemaAndRollbackAfterCommitIsNoop(t *testing.T) {
	// Arrange
	db := postgrestest.Start(t)
	ctx := context.Background()

	// Act
	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// Assert
	assert.NoError(t, tx.Rollback())

	var tables int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('products', 'inventory_movements', 'orders')
	`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables)
}
