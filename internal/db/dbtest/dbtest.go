// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/handygo/internal/db"
)

// Open returns an in-memory SQLite database private to t, with the schema migrated.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", name)

	opts := db.Options()
	opts.Logger = logger.Default.LogMode(logger.Silent)

	gdb, err := gorm.Open(sqlite.Open(dsn), opts)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection serializes transactions; SQLite has no row locks to offer anyway.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}
