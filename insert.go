package sqlz

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

// InsertStmt represents an INSERT statement
type InsertStmt struct {
	InsCols []string
	InsVals []interface{}
	Table   string
	db      *DB
}

// InsertInto creates a new InsertStmt object for the
// provided table
func (db *DB) InsertInto(table string) *InsertStmt {
	return &InsertStmt{
		Table: table,
		db:    db,
	}
}

// Columns defines the columns to insert. It can be safely
// used alongside ValueMap in the same query, provided Values
// is used immediately after Columns
func (stmt *InsertStmt) Columns(cols ...string) *InsertStmt {
	stmt.InsCols = append(stmt.InsCols, cols...)
	return stmt
}

// Values sets the values to insert to the table (based on the
// columns provided via Columns). Entities are inserted as their id.
func (stmt *InsertStmt) Values(vals ...interface{}) *InsertStmt {
	for _, val := range vals {
		stmt.InsVals = append(stmt.InsVals, bindValue(val))
	}
	return stmt
}

// ValueMap receives a map of columns and values to insert. Columns are
// added in lexical order.
func (stmt *InsertStmt) ValueMap(vals map[string]interface{}) *InsertStmt {
	cols := make([]string, 0, len(vals))
	for col := range vals {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		stmt.InsCols = append(stmt.InsCols, col)
		stmt.InsVals = append(stmt.InsVals, bindValue(vals[col]))
	}
	return stmt
}

// ToSQL generates the INSERT statement's SQL and returns a list of
// bindings. It is used internally by Exec, but is exported if you
// wish to use it directly.
func (stmt *InsertStmt) ToSQL(rebind bool) (asSQL string, bindings []interface{}) {
	var clauses = []string{"INSERT INTO " + quoteIdent(stmt.Table)}

	if len(stmt.InsCols) > 0 {
		quoted := make([]string, len(stmt.InsCols))
		for i, col := range stmt.InsCols {
			quoted[i] = quoteIdent(col)
		}
		clauses = append(clauses, "("+strings.Join(quoted, ", ")+")")
	}

	if len(stmt.InsVals) > 0 {
		var placeholders []string
		for range stmt.InsVals {
			placeholders = append(placeholders, "?")
		}

		clauses = append(clauses, "VALUES ("+strings.Join(placeholders, ", ")+")")
	}

	asSQL = strings.Join(clauses, " ")
	if rebind && stmt.db != nil {
		asSQL = stmt.db.Rebind(asSQL)
	}

	return asSQL, stmt.InsVals
}

// Exec executes the INSERT statement, returning the standard
// sql.Result struct and an error if the query failed.
func (stmt *InsertStmt) Exec(ctx context.Context) (res sql.Result, err error) {
	asSQL, bindings := stmt.ToSQL(true)
	return stmt.db.exec(ctx, asSQL, bindings...)
}
