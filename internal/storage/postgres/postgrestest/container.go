// Package postgrestest starts a throwaway Postgres for integration tests.
package postgrestest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/storage/postgres"
)

// Start boots a migrated postgres:16-alpine container. It skips the test in
// -short mode. The container is terminated through t.Cleanup.
func Start(t *testing.T) *postgres.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := postgres.Config{
		Host:     host,
		Port:     fmt.Sprint(port.Int()),
		User:     "testuser",
		Password: "testpass",
		Name:     "orders_test",
	}
	require.NoError(t, postgres.Migrate(cfg.DSN()))

	db, err := postgres.Connect(ctx, cfg.DSN(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}
