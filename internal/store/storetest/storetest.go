// Package storetest builds throwaway sqlite-backed stores for tests.
package storetest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"todoweb/internal/store"
)

// DSN returns a sqlite DSN for a fresh database file under t.TempDir().
func DSN(t testing.TB) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "todos.db") + "?_pragma=busy_timeout(5000)"
}

// New returns a migrated store on a fresh sqlite database.
func New(t testing.TB) *store.Store {
	t.Helper()
	db, err := sqlx.Open(store.SQLite.DriverName, DSN(t))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewWithDB(db, store.SQLite)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

// Clock is a deterministic time source advancing one second per call.
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

func NewClock() *Clock {
	return &Clock{cur: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}
