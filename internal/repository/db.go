package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so every repository
// runs unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// whereBuilder accumulates AND-ed clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// newListWhere starts a builder honoring soft deletes and an ILIKE filter over cols.
func newListWhere(alias string, q domain.ListQuery, filterCols ...string) *whereBuilder {
	b := &whereBuilder{clauses: []string{"1=1"}}
	if !q.WithDeleted {
		b.clauses = append(b.clauses, alias+".deleted_at IS NULL")
	}
	if term := strings.TrimSpace(q.Filter); term != "" && len(filterCols) > 0 {
		b.args = append(b.args, "%"+term+"%")
		placeholder := fmt.Sprintf("$%d", len(b.args))
		ors := make([]string, len(filterCols))
		for i, col := range filterCols {
			ors[i] = fmt.Sprintf("%s ILIKE %s", col, placeholder)
		}
		b.clauses = append(b.clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return b
}

// eq adds "expr = $n".
func (b *whereBuilder) eq(expr string, arg any) *whereBuilder {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf("%s = $%d", expr, len(b.args)))
	return b
}

// raw adds a clause whose single "$?" marker is bound to arg.
func (b *whereBuilder) raw(clause string, arg any) *whereBuilder {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(b.args))))
	return b
}

func (b *whereBuilder) String() string {
	return strings.Join(b.clauses, " AND ")
}

// scanFunc reads one row; pgx.Rows and the result of QueryRow both satisfy pgx.Row.
type scanFunc[T any] func(row pgx.Row) (T, error)

// fetchPage runs a count and a paged select sharing the same FROM and WHERE.
func fetchPage[T any](ctx context.Context, db DBTX, columns, from string, where *whereBuilder, order string, q domain.ListQuery, scan scanFunc[T]) (domain.Page[T], error) {
	q = q.Normalize()
	page := domain.Page[T]{Data: []T{}}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, from, where)
	if err := db.QueryRow(ctx, countQuery, where.args...).Scan(&page.Total); err != nil {
		return page, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		columns, from, where, order, q.Take, q.Skip)
	items, err := fetchAll(ctx, db, query, scan, where.args...)
	if err != nil {
		return page, err
	}
	page.Data = items
	return page, nil
}

func fetchAll[T any](ctx context.Context, db DBTX, query string, scan scanFunc[T], args ...any) ([]T, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func fetchOne[T any](ctx context.Context, db DBTX, query string, scan scanFunc[T], args ...any) (*T, error) {
	item, err := scan(db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// execOne runs a statement that must touch at least one row.
func execOne(ctx context.Context, db DBTX, query string, args ...any) error {
	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// softDelete stamps deleted_at on a live row of table.
func softDelete(ctx context.Context, db DBTX, table, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, table)
	return execOne(ctx, db, query, id)
}

// nullable turns an empty optional id into SQL NULL.
func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
