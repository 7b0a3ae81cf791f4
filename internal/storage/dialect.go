package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"creatorfin/internal/core"

	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL engines.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	dollarArgs bool
	textTimes  bool
}

var (
	SQLite   = Dialect{Name: "sqlite", textTimes: true}
	Postgres = Dialect{Name: "postgres", dollarArgs: true}
)

// DialectByName resolves "sqlite" or "postgres".
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name, "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// Open returns a database handle for dsn. For SQLite dsn is a file path.
func (d Dialect) Open(dsn string) (*sql.DB, error) {
	if d.Name == SQLite.Name {
		return openSQLite(dsn)
	}
	return openPostgres(dsn)
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(NormalizePostgresURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// NormalizePostgresURL rewrites postgresql:// to postgres:// and defaults
// sslmode to disable when the URL does not set it.
func NormalizePostgresURL(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if strings.HasPrefix(databaseURL, "postgres://") && !strings.Contains(databaseURL, "sslmode=") {
		sep := "?"
		if strings.Contains(databaseURL, "?") {
			sep = "&"
		}
		databaseURL += sep + "sslmode=disable"
	}
	return databaseURL
}

// rebind converts '?' placeholders to $1..$n for Postgres.
func (d Dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) dateArg(date core.Date) any {
	if d.textTimes {
		return date.String()
	}
	return date.Time
}

func (d Dialect) timeArg(t time.Time) any {
	t = t.UTC()
	if d.textTimes {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// scanDate accepts what either driver hands back for a DATE/TEXT column.
func scanDate(v any) (core.Date, error) {
	switch x := v.(type) {
	case time.Time:
		return core.DateOf(x), nil
	case string:
		return core.ParseDate(firstDateChars(x))
	case []byte:
		return core.ParseDate(firstDateChars(string(x)))
	default:
		return core.Date{}, fmt.Errorf("unexpected date value %T", v)
	}
}

func firstDateChars(s string) string {
	if len(s) > len(core.DateLayout) {
		return s[:len(core.DateLayout)]
	}
	return s
}

func scanTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		return parseTimeText(x)
	case []byte:
		return parseTimeText(string(x))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp value %T", v)
	}
}

func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
