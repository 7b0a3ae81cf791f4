package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrator owns the connection it migrates through.
type Migrator struct {
	*migrate.Migrate
	db *sql.DB
}

// Close releases the migrate instance and its connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.Migrate.Close()
	closeErr := m.db.Close()
	return errors.Join(srcErr, dbErr, closeErr)
}

// NewMigrator builds a migrate instance on a dedicated connection, separate
// from the repository's handle.
func NewMigrator(d Dialect, dsn string) (*Migrator, error) {
	db, err := d.Open(dsn)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrationsFS, "migrations/"+d.Name)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	switch d.Name {
	case SQLite.Name:
		driver, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create sqlite driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
		return &Migrator{Migrate: m, db: db}, nil
	default:
		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create pgx driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
		return &Migrator{Migrate: m, db: db}, nil
	}
}

// RunMigrations applies every pending up migration.
func RunMigrations(d Dialect, dsn string) error {
	m, err := NewMigrator(d, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
