package sqlz

// Subquery opens a nested statement attached to this one. Build the
// subquery, then call Back to insert it, parenthesized, at the position this
// statement was at.
func (stmt *SelectStmt) Subquery(context SubqueryContext) *SelectStmt {
	return &SelectStmt{
		db:      stmt.db,
		parent:  stmt,
		context: context,
		replay:  stmt.replay,
		err:     stmt.err,
	}
}

// Back inserts the subquery into its parent statement and returns the
// parent. Errors recorded by the subquery are propagated to the parent.
// Condition subqueries are returned as is, ready to be passed as an operand
// to On, Where or Having.
func (stmt *SelectStmt) Back() *SelectStmt {
	if stmt.parent == nil {
		if stmt.context == SubqueryCondition {
			return stmt
		}
		return stmt.fail(ErrNoParent)
	}

	parent := stmt.parent
	if stmt.err != nil {
		return parent.fail(stmt.err)
	}
	if parent.err != nil {
		return parent
	}

	pos := parent.position
	if pos == PositionCurrent {
		pos = PositionFields
	}
	parent.bind(pos, stmt.Bindings()...)
	parent.Raw("("+stmt.build()+")", pos)

	return parent
}

// AsCondition renders the statement, parenthesized, as a Fragment that can be
// compared against in conditions.
func (stmt *SelectStmt) AsCondition() (Fragment, error) {
	if stmt.replay {
		return Fragment{Bindings: stmt.Bindings()}, nil
	}
	if stmt.err != nil {
		return Fragment{}, stmt.err
	}
	return Fragment{SQL: "(" + stmt.build() + ")", Bindings: stmt.Bindings()}, nil
}
