// Command creatorfin-migrate applies or rolls back schema migrations for the
// configured SQL backend.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"creatorfin/internal/cli"
	"creatorfin/internal/config"
	"creatorfin/internal/log"
	"creatorfin/internal/storage"
)

func main() {
	steps := flag.Int("steps", 0, "number of migrations to roll back with 'down' (0 = all)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-steps n] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentStorage)
	cfg = cli.LoadAndValidateConfig(logger)

	d, dsn, err := target(cfg)
	if err != nil {
		logger.Error("Nothing to migrate", log.FieldError, err)
		os.Exit(1)
	}

	m, err := storage.NewMigrator(d, dsn)
	if err != nil {
		logger.Error("Failed to open migrator", log.FieldError, err, "dialect", d.Name)
		os.Exit(1)
	}

	if err := run(m, flag.Arg(0), *steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migration failed", log.FieldError, err, "command", flag.Arg(0), "dialect", d.Name)
		m.Close()
		os.Exit(1)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("Schema is empty", "dialect", d.Name)
	case err != nil:
		logger.Error("Failed to read schema version", log.FieldError, err)
	default:
		logger.Info("Schema version", "version", version, "dirty", dirty, "dialect", d.Name)
	}
}

func target(cfg *config.Config) (storage.Dialect, string, error) {
	switch cfg.DataBackend {
	case "sqlite":
		return storage.SQLite, cfg.SQLiteDBPath, nil
	case "postgres":
		return storage.Postgres, cfg.DatabaseURL, nil
	default:
		return storage.Dialect{}, "", fmt.Errorf("backend %q has no schema", cfg.DataBackend)
	}
}

func run(m *storage.Migrator, command string, steps int) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
