package store

import (
	"time"

	"github.com/Masterminds/squirrel"
)

const todoTable = "todos"

var todoColumns = []string{"id", "title", "description", "completed", "created_at", "updated_at"}

// sqlBuilder wraps squirrel with the dialect's placeholder format.
type sqlBuilder struct {
	sq squirrel.StatementBuilderType
}

func newSQLBuilder(d Dialect) *sqlBuilder {
	return &sqlBuilder{sq: squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)}
}

func (b *sqlBuilder) listTodos() (string, []interface{}, error) {
	return b.sq.Select(todoColumns...).
		From(todoTable).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
}

func (b *sqlBuilder) getTodo(id string) (string, []interface{}, error) {
	return b.sq.Select(todoColumns...).
		From(todoTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
}

func (b *sqlBuilder) countTodos() (string, []interface{}, error) {
	return b.sq.Select("COUNT(*)").From(todoTable).ToSql()
}

func (b *sqlBuilder) insertTodo(t Todo) (string, []interface{}, error) {
	return b.sq.Insert(todoTable).
		Columns(todoColumns...).
		Values(t.ID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt).
		ToSql()
}

// toggleTodo flips completed in place so concurrent toggles never read a stale value.
func (b *sqlBuilder) toggleTodo(id string, now time.Time) (string, []interface{}, error) {
	return b.sq.Update(todoTable).
		Set("completed", squirrel.Expr("NOT completed")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		ToSql()
}

func (b *sqlBuilder) deleteTodo(id string) (string, []interface{}, error) {
	return b.sq.Delete(todoTable).Where(squirrel.Eq{"id": id}).ToSql()
}
