package database

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all up migrations found at migrationsPath to the
// sqlite database at dbPath, creating it if needed.
func RunMigrations(dbPath, migrationsPath string) error {
	dsn := fmt.Sprintf("sqlite3://file:%s?_foreign_keys=on", dbPath)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
