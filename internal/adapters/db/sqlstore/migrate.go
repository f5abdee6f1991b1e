package sqlstore

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for db's dialect, reporting
// progress to log.
func RunMigrations(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	dir := "migrations/sqlite"
	dialect := "sqlite3"
	if db.Dialector.Name() == DriverMySQL {
		dir = "migrations/mysql"
		dialect = "mysql"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	goose.SetLogger(newGooseLogger(log))
	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}

	return nil
}
