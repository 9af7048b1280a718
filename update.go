package sqlz

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

// UpdateStmt represents an UPDATE statement
type UpdateStmt struct {
	Table      string
	Updates    map[string]interface{}
	Conditions []WhereCondition
	cols       []string
	db         *DB
}

// Update creates a new UpdateStmt object for
// the specified table
func (db *DB) Update(table string) *UpdateStmt {
	return &UpdateStmt{
		Table:   table,
		Updates: make(map[string]interface{}),
		db:      db,
	}
}

// Set receives the name of a column and a new value. Multiple calls to Set
// can be chained together to modify multiple columns. Set can also be chained
// with calls to SetMap. A Fragment value is rendered as-is, e.g.
// Set("counter", Raw("`counter` + 1")).
func (stmt *UpdateStmt) Set(col string, value interface{}) *UpdateStmt {
	if _, exists := stmt.Updates[col]; !exists {
		stmt.cols = append(stmt.cols, col)
	}
	stmt.Updates[col] = value
	return stmt
}

// SetIf is the same as Set, but also accepts a boolean value and only does
// anything if that value is true.
func (stmt *UpdateStmt) SetIf(col string, value interface{}, b bool) *UpdateStmt {
	if b {
		return stmt.Set(col, value)
	}
	return stmt
}

// SetMap receives a map of columns and values. Multiple calls to both Set and
// SetMap can be chained to modify multiple columns. Columns from the map are
// added in lexical order.
func (stmt *UpdateStmt) SetMap(updates map[string]interface{}) *UpdateStmt {
	cols := make([]string, 0, len(updates))
	for col := range updates {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		stmt.Set(col, updates[col])
	}
	return stmt
}

// Where creates one or more WHERE conditions for the UPDATE statement.
// If multiple conditions are passed, they are considered AND conditions.
func (stmt *UpdateStmt) Where(conditions ...WhereCondition) *UpdateStmt {
	stmt.Conditions = append(stmt.Conditions, conditions...)
	return stmt
}

// ToSQL generates the UPDATE statement's SQL and returns a list of
// bindings. It is used internally by Exec, but is exported if you wish
// to use it directly.
func (stmt *UpdateStmt) ToSQL(rebind bool) (asSQL string, bindings []interface{}) {
	var clauses = []string{"UPDATE " + quoteIdent(stmt.Table)}

	var updates []string

	for _, col := range stmt.cols {
		val := stmt.Updates[col]
		if frag, isFragment := val.(Fragment); isFragment {
			updates = append(updates, quoteIdent(col)+" = "+frag.SQL)
			bindings = append(bindings, frag.Bindings...)
		} else {
			updates = append(updates, quoteIdent(col)+" = ?")
			bindings = append(bindings, bindValue(val))
		}
	}

	clauses = append(clauses, "SET "+strings.Join(updates, ", "))

	if len(stmt.Conditions) > 0 {
		whereClause, whereBindings := parseConditions(stmt.Conditions)
		bindings = append(bindings, whereBindings...)
		clauses = append(clauses, "WHERE "+whereClause)
	}

	asSQL = strings.Join(clauses, " ")
	if rebind && stmt.db != nil {
		asSQL = stmt.db.Rebind(asSQL)
	}

	return asSQL, bindings
}

// Exec executes the UPDATE statement, returning the standard
// sql.Result struct and an error if the query failed.
func (stmt *UpdateStmt) Exec(ctx context.Context) (res sql.Result, err error) {
	asSQL, bindings := stmt.ToSQL(true)
	return stmt.db.exec(ctx, asSQL, bindings...)
}
