package sqlz

import (
	"context"
	"database/sql"
	"strings"
)

// DeleteStmt represents a DELETE statement
type DeleteStmt struct {
	Table      string
	Conditions []WhereCondition
	db         *DB
}

// DeleteFrom creates a new DeleteStmt object for the
// provided table
func (db *DB) DeleteFrom(table string) *DeleteStmt {
	return &DeleteStmt{
		Table: table,
		db:    db,
	}
}

// Where creates one or more WHERE conditions for the DELETE statement.
// If multiple conditions are passed, they are considered AND conditions.
func (stmt *DeleteStmt) Where(conds ...WhereCondition) *DeleteStmt {
	stmt.Conditions = append(stmt.Conditions, conds...)
	return stmt
}

// ToSQL generates the DELETE statement's SQL and returns a list of
// bindings. It is used internally by Exec, but is exported if you
// wish to use it directly.
func (stmt *DeleteStmt) ToSQL(rebind bool) (asSQL string, bindings []interface{}) {
	var clauses = []string{"DELETE FROM " + quoteIdent(stmt.Table)}

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

// Exec executes the DELETE statement, returning the standard
// sql.Result struct and an error if the query failed.
func (stmt *DeleteStmt) Exec(ctx context.Context) (res sql.Result, err error) {
	asSQL, bindings := stmt.ToSQL(true)
	return stmt.db.exec(ctx, asSQL, bindings...)
}
