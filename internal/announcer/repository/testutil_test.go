package repository

import (
	"context"
	"testing"
	"time"

	"contract-announcer/pkg/logger"
	"contract-announcer/pkg/migration"
	pgstore "contract-announcer/pkg/postgres"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// setupTestDB starts a PostgreSQL container and applies the embedded migrations.
// The returned cleanup func must be called after the test.
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	runner, err := migration.New(url, logger.NewNop())
	require.NoError(t, err, "failed to create migration runner")
	require.NoError(t, runner.Up(), "failed to apply migrations")
	runner.Close()

	db, err := pgstore.Open(url, pgstore.Config{LogLevel: "silent"})
	require.NoError(t, err, "failed to open database")

	cleanup := func() {
		_ = db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db.DB, cleanup
}

func ptr[T any](v T) *T {
	return &v
}
