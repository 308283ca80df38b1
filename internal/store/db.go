package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

// Store runs todo queries against the handle supplied by a Manager.
// Every operation is exactly one statement.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	sql     *sqlBuilder
	now     func() time.Time
}

func New(m *Manager) *Store {
	return NewWithDB(m.Client(), m.Dialect())
}

func NewWithDB(db *sqlx.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d, sql: newSQLBuilder(d), now: time.Now}
}

// WithClock replaces the timestamp source. Timestamps are always stored in UTC.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, ddl := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			if s.dialect.dupIndex != nil && s.dialect.dupIndex(err) {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// List returns all todos, newest first. Ties on created_at are broken by id.
func (s *Store) List(ctx context.Context) ([]Todo, error) {
	q, args, err := s.sql.listTodos()
	if err != nil {
		return nil, err
	}
	out := []Todo{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Todo, error) {
	q, args, err := s.sql.getTodo(id)
	if err != nil {
		return Todo{}, err
	}
	var t Todo
	if err := s.db.GetContext(ctx, &t, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Todo{}, ErrNotFound
		}
		return Todo{}, fmt.Errorf("get todo %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	q, args, err := s.sql.countTodos()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return n, nil
}

// Create inserts a new, not yet completed todo. A nil description is stored as NULL.
func (s *Store) Create(ctx context.Context, title string, description *string) (Todo, error) {
	now := s.now().UTC()
	t := Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q, args, err := s.sql.insertTodo(t)
	if err != nil {
		return Todo{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

// Toggle negates completed in a single UPDATE.
func (s *Store) Toggle(ctx context.Context, id string) error {
	q, args, err := s.sql.toggleTodo(id, s.now().UTC())
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("toggle todo %s: %w", id, err)
	}
	return affectedOne(res)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	q, args, err := s.sql.deleteTodo(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
