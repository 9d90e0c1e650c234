package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"stephly/internal/core"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites ? placeholders into $1, $2... for PostgreSQL.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
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

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries binds SQL statements to a connection or transaction.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.Rebind(query), args...)
}

// affected returns sql.ErrNoRows when a scoped update or delete matched nothing.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dateValue adapts core.Date to a YYYY-MM-DD text column.
type dateValue struct {
	d *core.Date
}

func (v dateValue) Value() (driver.Value, error) {
	return v.d.String(), nil
}

func (v dateValue) Scan(src interface{}) error {
	switch s := src.(type) {
	case nil:
		*v.d = core.Date{}
		return nil
	case time.Time:
		t := s.UTC()
		*v.d = core.NewDate(t.Year(), int(t.Month()), t.Day())
		return nil
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (v dateValue) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*v.d = core.Date{}
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*v.d = d
	return nil
}

// monthRange returns the half-open [start, end) date strings for a month.
func monthRange(year, month int) (string, string) {
	start := core.NewDate(year, month, 1)
	end := core.Date{Time: start.AddDate(0, 1, 0)}
	return start.String(), end.String()
}
