//go:build integration

// Package containers starts throwaway Postgres and Redis instances for the
// integration suites.
package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/db"
)

// NewPostgres starts Postgres, connects through db.Connect and migrates the
// schema. The container is removed when t finishes.
func NewPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("handygo"),
		tcpostgres.WithUsername("handygo"),
		tcpostgres.WithPassword("handygo"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gdb
}
