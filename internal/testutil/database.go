package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/carcrm/internal/adapters/db/sqlstore"
	"github.com/rs/zerolog"
)

// NewTestRepository opens a migrated SQLite file under t.TempDir().
// The database is closed when the test completes.
func NewTestRepository(t *testing.T) *sqlstore.PipelineRepository {
	t.Helper()

	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "carcrm_test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := sqlstore.RunMigrations(context.Background(), db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return sqlstore.NewPipelineRepository(db)
}
