package store

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect describes how to talk to one SQL engine.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder squirrel.PlaceholderFormat
	// Schema holds the statements run by Migrate, in order.
	Schema []string
	// dupIndex reports whether an error from a CREATE INDEX means the index already exists.
	dupIndex func(error) bool
}

var (
	MySQL = Dialect{
		Name:        "mysql",
		DriverName:  "mysql",
		Placeholder: squirrel.Question,
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS todos (
    id VARCHAR(36) PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL
)`,
			// MySQL lacks IF NOT EXISTS for CREATE INDEX in some versions; duplicates are ignored
			`CREATE INDEX idx_todos_created_at ON todos(created_at)`,
		},
		dupIndex: func(err error) bool {
			e := err.Error()
			return strings.Contains(e, "Duplicate key name") || strings.Contains(e, "1061")
		},
	}

	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "pgx",
		Placeholder: squirrel.Dollar,
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS todos (
    id VARCHAR(36) PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at)`,
		},
	}

	SQLite = Dialect{
		Name:        "sqlite",
		DriverName:  "sqlite",
		Placeholder: squirrel.Question,
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS todos (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at)`,
		},
	}
)

// DialectFor maps a configured driver name to its Dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported db driver: %s", name)
	}
}
