package sqlz

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Row is a result row, mapping column names to values. Byte slices returned
// by the driver are converted to strings.
type Row map[string]interface{}

// Plan is a statement prepared on a connection. Plans outlive transactions:
// while the connection is inside a transaction, executions are routed
// through it.
type Plan struct {
	SQL  string
	stmt *sqlx.Stmt
	db   *DB
}

// PreparePlan prepares SQL on the connection.
func (db *DB) PreparePlan(ctx context.Context, asSQL string) (*Plan, error) {
	stmt, err := db.PreparexContext(ctx, asSQL)
	if err != nil {
		return nil, db.handleError(fmt.Errorf("prepare %q: %w", asSQL, err))
	}
	db.logger().Debug("prepared statement", "db", db.id, "sql", asSQL)
	return &Plan{SQL: asSQL, stmt: stmt, db: db}, nil
}

func (p *Plan) current(ctx context.Context) *sqlx.Stmt {
	if p.db.tx != nil {
		return p.db.tx.StmtxContext(ctx, p.stmt)
	}
	return p.stmt
}

// Query executes the plan and returns a cursor over the result rows.
func (p *Plan) Query(ctx context.Context, args ...interface{}) (*Cursor, error) {
	rows, err := p.current(ctx).QueryxContext(ctx, args...)
	if err != nil {
		return nil, p.db.handleError(err)
	}
	return &Cursor{rows: rows, db: p.db}, nil
}

// Exec executes the plan as a statement that returns no rows.
func (p *Plan) Exec(ctx context.Context, args ...interface{}) (sql.Result, error) {
	res, err := p.current(ctx).ExecContext(ctx, args...)
	return res, p.db.handleError(err)
}

// Get executes the plan and scans the first row into dest (a struct, or a
// scalar if only one column is selected).
func (p *Plan) Get(ctx context.Context, dest interface{}, args ...interface{}) error {
	return p.db.handleError(p.current(ctx).GetContext(ctx, dest, args...))
}

// Select executes the plan and scans all rows into the dest slice.
func (p *Plan) Select(ctx context.Context, dest interface{}, args ...interface{}) error {
	return p.db.handleError(p.current(ctx).SelectContext(ctx, dest, args...))
}

// Close releases the prepared statement.
func (p *Plan) Close() error {
	return p.stmt.Close()
}

// Cursor iterates over the rows returned by a plan.
type Cursor struct {
	rows  *sqlx.Rows
	db    *DB
	row   Row
	count int
	err   error
}

// Next advances to the next row. It returns false at the end of the result
// set or on error, and closes the cursor in both cases.
func (c *Cursor) Next() bool {
	if c.rows == nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return false
	}

	m := make(map[string]interface{})
	if err := c.rows.MapScan(m); err != nil {
		c.err = err
		c.Close()
		return false
	}

	c.row = normalizeRow(m)
	c.count++
	return true
}

// Row returns the current row.
func (c *Cursor) Row() Row {
	return c.row
}

// Count returns the number of rows fetched so far.
func (c *Cursor) Count() int {
	return c.count
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.db.handleError(c.err)
}

// Close closes the underlying rows. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

func normalizeRow(m map[string]interface{}) Row {
	row := make(Row, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}

// rowID extracts the id column of a row.
func rowID(row Row) (int64, bool) {
	v, ok := row["id"]
	if !ok || v == nil {
		return 0, false
	}
	return toInt64(v)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	case []byte:
		id, err := strconv.ParseInt(string(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}
