package sqlz

import (
	"fmt"
	"reflect"
	"strings"
)

// Position identifies the clause of a SELECT statement the builder is
// currently extending.
type Position int

// PositionCurrent refers to wherever the builder currently is. The other
// positions name the clauses of a SELECT statement in rendering order.
const (
	PositionCurrent Position = iota
	PositionFields
	PositionTables
	PositionJoins
	PositionWhere
	PositionGroupBy
	PositionHaving
	PositionOrderBy

	positionCount
)

var positionNames = [...]string{"current", "fields", "tables", "joins", "where", "group by", "having", "order by"}

func (p Position) String() string {
	if p < 0 || p >= positionCount {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// JoinType is an enumerated type representing the
// type of a JOIN clause
type JoinType string

// String returns the string representation of the
// join type (e.g. "LEFT OUTER JOIN")
func (j JoinType) String() string {
	return string(j)
}

// Supported join types
const (
	DefaultJoin           JoinType = "JOIN"
	InnerJoin             JoinType = "INNER JOIN"
	CrossJoin             JoinType = "CROSS JOIN"
	StraightJoin          JoinType = "STRAIGHT_JOIN"
	LeftJoin              JoinType = "LEFT JOIN"
	RightJoin             JoinType = "RIGHT JOIN"
	LeftOuterJoin         JoinType = "LEFT OUTER JOIN"
	RightOuterJoin        JoinType = "RIGHT OUTER JOIN"
	NaturalJoin           JoinType = "NATURAL JOIN"
	NaturalLeftJoin       JoinType = "NATURAL LEFT JOIN"
	NaturalRightJoin      JoinType = "NATURAL RIGHT JOIN"
	NaturalLeftOuterJoin  JoinType = "NATURAL LEFT OUTER JOIN"
	NaturalRightOuterJoin JoinType = "NATURAL RIGHT OUTER JOIN"
)

// Direction is the sort direction of a GROUP BY or ORDER BY column
type Direction string

// Ascending and Descending sort directions
const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// IndexPurpose restricts an index hint to a part of the query
type IndexPurpose string

// Index hint purposes
const (
	ForJoin    IndexPurpose = "FOR JOIN"
	ForOrderBy IndexPurpose = "FOR ORDER BY"
	ForGroupBy IndexPurpose = "FOR GROUP BY"
)

// LockMode is the locking read clause appended to a SELECT statement
type LockMode string

// Lock modes
const (
	NoLock          LockMode = ""
	LockForUpdate   LockMode = "FOR UPDATE"
	LockInShareMode LockMode = "LOCK IN SHARE MODE"
)

// SubqueryContext determines how a subquery is rendered and attached to its
// parent statement
type SubqueryContext int

// SubqueryDefault subqueries are inserted at the parent's current position
// by Back. SubqueryExists subqueries select the constant 1. SubqueryCondition
// subqueries have no parent and are turned into a Fragment by AsCondition.
const (
	SubqueryDefault SubqueryContext = iota
	SubqueryExists
	SubqueryCondition
)

// SelectStmt represents a SELECT statement under construction. The
// statement is built in call order: every method appends to the clause it
// names (or to the clause the builder is currently positioned at), and the
// bindings of every clause are kept in the order their placeholders appear.
//
// The first structural mistake (e.g. AddAnd before any WHERE clause) is
// recorded and returned by Err, Build and all execution methods; further
// calls on the statement have no effect.
type SelectStmt struct {
	db         *DB
	model      *Type
	modelAlias string
	distinct   bool
	rollup     bool
	limit      *int64
	offset     *int64
	lock       LockMode
	position   Position
	text       [positionCount]string
	open       [positionCount]bool
	bindings   [positionCount][]interface{}
	parent     *SelectStmt
	context    SubqueryContext
	slot       *Cache
	replay     bool
	plan       *Plan
	err        error
}

// Select creates a new SelectStmt object, optionally selecting the provided
// fields. If the connection's row-locking flag is set, the statement starts
// out with a FOR UPDATE lock mode.
func (db *DB) Select(fields ...string) *SelectStmt {
	stmt := &SelectStmt{db: db}
	if db.SelectForUpdate {
		stmt.lock = LockForUpdate
	}
	if len(fields) > 0 {
		stmt.Fields(fields...)
	}
	return stmt
}

// ConditionSubquery creates a detached subquery whose rendered text and
// bindings can be used as an operand of a condition, either by passing the
// statement itself to On, Where or Having, or through AsCondition.
func ConditionSubquery() *SelectStmt {
	return &SelectStmt{context: SubqueryCondition}
}

// Err returns the first structural error recorded by the statement.
func (stmt *SelectStmt) Err() error {
	return stmt.err
}

// Database rebinds the statement to another connection, picking up that
// connection's row-locking flag.
func (stmt *SelectStmt) Database(db *DB) *SelectStmt {
	stmt.db = db
	if db.SelectForUpdate {
		stmt.lock = LockForUpdate
	}
	stmt.plan = nil
	return stmt
}

func (stmt *SelectStmt) fail(err error) *SelectStmt {
	if stmt.err == nil {
		stmt.err = err
	}
	return stmt
}

// write appends text to a clause. Cache proxies only collect bindings.
func (stmt *SelectStmt) write(pos Position, asSQL string) {
	if !stmt.replay {
		stmt.text[pos] += asSQL
	}
}

func (stmt *SelectStmt) bind(pos Position, values ...interface{}) {
	stmt.bindings[pos] = append(stmt.bindings[pos], values...)
}

// Distinct marks the statements as a SELECT DISTINCT
// statement
func (stmt *SelectStmt) Distinct(distinct ...bool) *SelectStmt {
	stmt.distinct = len(distinct) == 0 || distinct[0]
	return stmt
}

func (stmt *SelectStmt) appendField(asSQL string) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionFields
	if stmt.text[PositionFields] != "" {
		stmt.write(PositionFields, ", ")
	}
	stmt.write(PositionFields, asSQL)
	return stmt
}

func aliasSQL(alias []string) string {
	if len(alias) > 0 && alias[0] != "" {
		return " AS " + quoteIdent(alias[0])
	}
	return ""
}

// Fields adds the provided fields to the list of selected fields. A field
// name of the form "table.column" or "table.*" is quoted accordingly.
func (stmt *SelectStmt) Fields(fields ...string) *SelectStmt {
	for _, field := range fields {
		stmt.appendField(quoteField(field))
	}
	stmt.position = PositionFields
	return stmt
}

// Field adds one field to the list of selected fields, with an optional alias
func (stmt *SelectStmt) Field(field string, alias ...string) *SelectStmt {
	return stmt.appendField(quoteField(field) + aliasSQL(alias))
}

// CountAll selects COUNT(*)
func (stmt *SelectStmt) CountAll() *SelectStmt {
	return stmt.appendField("COUNT(*)")
}

// Count selects the number of non-NULL values of a field (all rows if field
// is empty), with an optional alias
func (stmt *SelectStmt) Count(field string, alias ...string) *SelectStmt {
	if field == "" {
		return stmt.appendField("COUNT(*)" + aliasSQL(alias))
	}
	return stmt.appendField("COUNT(" + quoteField(field) + ")" + aliasSQL(alias))
}

// CountDistinct selects the number of distinct values of a field, with an
// optional alias
func (stmt *SelectStmt) CountDistinct(field string, alias ...string) *SelectStmt {
	if field == "" {
		return stmt.appendField("COUNT(DISTINCT *)" + aliasSQL(alias))
	}
	return stmt.appendField("COUNT(DISTINCT " + quoteField(field) + ")" + aliasSQL(alias))
}

// From adds a source table. The source is either a table name or an entity
// type; in the latter case the statement becomes scoped to that type: unless
// fields are selected explicitly, all of the type's columns are selected, and
// joins to other entity types resolve their ON clause from foreign keys.
func (stmt *SelectStmt) From(source interface{}, alias ...string) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionTables

	if stmt.text[PositionTables] != "" {
		stmt.write(PositionTables, ", ")
	}

	switch src := source.(type) {
	case *Type:
		stmt.model = src
		stmt.modelAlias = src.Table
		if len(alias) > 0 && alias[0] != "" {
			stmt.modelAlias = alias[0]
		}
		stmt.write(PositionTables, quoteIdent(src.Table)+aliasSQL(alias))
	case string:
		if src != "" {
			stmt.write(PositionTables, quoteIdent(src)+aliasSQL(alias))
		}
	default:
		return stmt.fail(fmt.Errorf("%w: cannot select from %T", ErrInvalidArguments, source))
	}

	return stmt
}

func (stmt *SelectStmt) indexHint(kind, name string, purpose []IndexPurpose) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionTables
	stmt.write(PositionTables, " "+kind+" INDEX ")
	if len(purpose) > 0 && purpose[0] != "" {
		stmt.write(PositionTables, string(purpose[0])+" ")
	}
	stmt.write(PositionTables, "("+quoteIdent(name)+")")
	return stmt
}

// UseIndex adds a USE INDEX hint to the last source table
func (stmt *SelectStmt) UseIndex(name string, purpose ...IndexPurpose) *SelectStmt {
	return stmt.indexHint("USE", name, purpose)
}

// IgnoreIndex adds an IGNORE INDEX hint to the last source table
func (stmt *SelectStmt) IgnoreIndex(name string, purpose ...IndexPurpose) *SelectStmt {
	return stmt.indexHint("IGNORE", name, purpose)
}

// ForceIndex adds a FORCE INDEX hint to the last source table
func (stmt *SelectStmt) ForceIndex(name string, purpose ...IndexPurpose) *SelectStmt {
	return stmt.indexHint("FORCE", name, purpose)
}

// Join adds a join on a table or an entity type. When joining an entity type
// from a statement scoped to another entity type, the ON clause is derived
// from the foreign key the scoped type declares on the joined type, unless
// autoOn is false or the join is NATURAL.
func (stmt *SelectStmt) Join(source interface{}, joinType JoinType, autoOn ...bool) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	if joinType == "" {
		joinType = DefaultJoin
	}

	stmt.position = PositionJoins
	stmt.open[PositionJoins] = false

	if stmt.text[PositionJoins] != "" {
		stmt.write(PositionJoins, " ")
	}
	stmt.write(PositionJoins, string(joinType)+" ")

	switch src := source.(type) {
	case *Type:
		stmt.write(PositionJoins, quoteIdent(src.Table))

		if (len(autoOn) == 0 || autoOn[0]) && stmt.model != nil && !strings.Contains(string(joinType), "NATURAL") {
			column, ok := stmt.model.foreignKeyTo(src)
			if !ok {
				return stmt.fail(fmt.Errorf("%w: %s has no foreign key to %s", ErrMissingForeignKey, stmt.model.Name, src.Name))
			}
			stmt.write(PositionJoins, " ON "+quoteIdent(src.Table)+".`id` = "+quoteIdent(stmt.model.Table)+"."+quoteIdent(column))
			stmt.open[PositionJoins] = true
		}
	case string:
		if src != "" {
			stmt.write(PositionJoins, quoteIdent(src))
		}
	default:
		return stmt.fail(fmt.Errorf("%w: cannot join %T", ErrInvalidArguments, source))
	}

	return stmt
}

// On opens the ON clause of the last join. The condition is a field (or a
// Fragment, or a condition subquery) followed by zero, one or two
// arguments, see Where.
func (stmt *SelectStmt) On(cond ...interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionJoins
	asSQL, err := stmt.parseCondition(PositionJoins, cond)
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(PositionJoins, " ON "+asSQL)
	stmt.open[PositionJoins] = true
	return stmt
}

// Using adds a USING clause with the provided columns to the last join
func (stmt *SelectStmt) Using(columns ...string) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionJoins

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	stmt.write(PositionJoins, " USING ("+strings.Join(quoted, ", ")+")")
	return stmt
}

// Where opens the WHERE clause, or extends it with AND if it is already
// open. The condition consists of a field followed by up to two arguments:
//
//	Where("x")                  `x` = ?   (value supplied to Run)
//	Where("x", nil)             `x` IS NULL
//	Where("x", 42)              `x` = ?
//	Where("x", ">=", 42)        `x` >= ?
//	Where("x", "IS NOT", nil)   `x` IS NOT NULL
//
// The field may also be a Fragment or a condition subquery, and so may the
// compared value. Entities are bound by their id. Calling Where without
// arguments only opens the clause.
func (stmt *SelectStmt) Where(cond ...interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionWhere
	if stmt.open[PositionWhere] {
		return stmt.AddAnd(cond...)
	}

	asSQL, err := stmt.parseCondition(PositionWhere, cond)
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(PositionWhere, " WHERE "+asSQL)
	stmt.open[PositionWhere] = true
	return stmt
}

// Having opens the HAVING clause, or extends it with AND if it is already
// open. Usage is the same as Where.
func (stmt *SelectStmt) Having(cond ...interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = PositionHaving
	if stmt.open[PositionHaving] {
		return stmt.AddAnd(cond...)
	}

	asSQL, err := stmt.parseCondition(PositionHaving, cond)
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(PositionHaving, " HAVING "+asSQL)
	stmt.open[PositionHaving] = true
	return stmt
}

// conditionPosition returns the condition clause the builder is positioned
// in, or ErrInvalidPosition if there is none open.
func (stmt *SelectStmt) conditionPosition(op string) (Position, error) {
	switch stmt.position {
	case PositionJoins, PositionWhere, PositionHaving:
		if stmt.open[stmt.position] {
			return stmt.position, nil
		}
	}
	return PositionCurrent, fmt.Errorf("%w: %s at %s", ErrInvalidPosition, op, stmt.position)
}

func (stmt *SelectStmt) combine(op, connector string, cond []interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos, err := stmt.conditionPosition(op)
	if err != nil {
		return stmt.fail(err)
	}
	asSQL, err := stmt.parseCondition(pos, cond)
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(pos, connector+asSQL)
	return stmt
}

// AddAnd extends the current condition clause with AND and an optional
// condition
func (stmt *SelectStmt) AddAnd(cond ...interface{}) *SelectStmt {
	return stmt.combine("AND", " AND ", cond)
}

// AddOr extends the current condition clause with OR and an optional
// condition
func (stmt *SelectStmt) AddOr(cond ...interface{}) *SelectStmt {
	return stmt.combine("OR", " OR ", cond)
}

// And is an alias of AddAnd
func (stmt *SelectStmt) And(cond ...interface{}) *SelectStmt {
	return stmt.AddAnd(cond...)
}

// Or is an alias of AddOr
func (stmt *SelectStmt) Or(cond ...interface{}) *SelectStmt {
	return stmt.AddOr(cond...)
}

// Clause opens a parenthesized group in the current condition clause,
// starting with an optional condition
func (stmt *SelectStmt) Clause(cond ...interface{}) *SelectStmt {
	return stmt.combine("clause", "(", cond)
}

// EndClause closes a group opened by Clause
func (stmt *SelectStmt) EndClause() *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos, err := stmt.conditionPosition("end of clause")
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(pos, ")")
	return stmt
}

// Not negates the following condition in the current condition clause
func (stmt *SelectStmt) Not() *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos, err := stmt.conditionPosition("NOT")
	if err != nil {
		return stmt.fail(err)
	}
	stmt.write(pos, "NOT ")
	return stmt
}

// In adds an IN expression matching a field against the provided values. A
// single slice argument is expanded. Without values, the expression is the
// constant false (0).
func (stmt *SelectStmt) In(field string, values ...interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos, err := stmt.conditionPosition("IN")
	if err != nil {
		return stmt.fail(err)
	}

	if len(values) == 1 {
		if expanded, ok := expandSlice(values[0]); ok {
			values = expanded
		}
	}

	if len(values) == 0 {
		stmt.write(pos, "0")
		return stmt
	}

	for _, val := range values {
		stmt.bind(pos, bindValue(val))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	stmt.write(pos, "("+quoteField(field)+" IN("+placeholders+"))")
	return stmt
}

// Between adds a BETWEEN expression
func (stmt *SelectStmt) Between(field string, start, end interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos, err := stmt.conditionPosition("BETWEEN")
	if err != nil {
		return stmt.fail(err)
	}
	stmt.bind(pos, bindValue(start), bindValue(end))
	stmt.write(pos, "("+quoteField(field)+" BETWEEN ? AND ?)")
	return stmt
}

// Exists writes EXISTS into the current condition clause (opening the WHERE
// clause if no condition clause is open) and returns the subquery to test.
// Call Back on the subquery to return to this statement.
func (stmt *SelectStmt) Exists() *SelectStmt {
	if stmt.err == nil {
		switch stmt.position {
		case PositionJoins:
			stmt.write(PositionJoins, "EXISTS ")
		case PositionHaving:
			stmt.write(PositionHaving, "EXISTS ")
		default:
			if !stmt.open[PositionWhere] {
				stmt.Where()
			}
			stmt.position = PositionWhere
			stmt.write(PositionWhere, "EXISTS ")
		}
	}
	return stmt.Subquery(SubqueryExists)
}

// GroupBy adds a column to the GROUP BY clause, with an optional direction.
// An empty column only opens the clause.
func (stmt *SelectStmt) GroupBy(column string, direction ...Direction) *SelectStmt {
	return stmt.sortClause(PositionGroupBy, " GROUP BY ", column, direction)
}

// Rollup adds WITH ROLLUP to the GROUP BY clause
func (stmt *SelectStmt) Rollup() *SelectStmt {
	stmt.rollup = true
	return stmt
}

// OrderBy adds a column to the ORDER BY clause, with an optional direction.
// An empty column only opens the clause.
func (stmt *SelectStmt) OrderBy(column string, direction ...Direction) *SelectStmt {
	return stmt.sortClause(PositionOrderBy, " ORDER BY ", column, direction)
}

func (stmt *SelectStmt) sortClause(pos Position, keyword, column string, direction []Direction) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	stmt.position = pos

	if !stmt.open[pos] {
		stmt.write(pos, keyword)
		stmt.open[pos] = true
	} else {
		stmt.write(pos, ", ")
	}

	if column != "" {
		stmt.write(pos, quoteField(column))
		if len(direction) > 0 && direction[0] != "" {
			stmt.write(pos, " "+string(direction[0]))
		}
	}
	return stmt
}

// Limit limits the amount of results returned to the provided value
func (stmt *SelectStmt) Limit(limit int64) *SelectStmt {
	stmt.limit = &limit
	return stmt
}

// Offset skips the provided number of results
func (stmt *SelectStmt) Offset(offset int64) *SelectStmt {
	stmt.offset = &offset
	return stmt
}

// Lock sets the locking read mode of the statement
func (stmt *SelectStmt) Lock(mode LockMode) *SelectStmt {
	stmt.lock = mode
	return stmt
}

// ForUpdate toggles the FOR UPDATE lock mode
func (stmt *SelectStmt) ForUpdate(forUpdate bool) *SelectStmt {
	if forUpdate {
		stmt.lock = LockForUpdate
	} else {
		stmt.lock = NoLock
	}
	return stmt
}

// Raw appends SQL text to the current clause, or to the provided one. The
// text is not checked in any way; placeholders in it must be bound through
// Run. Never use this with user-supplied input.
func (stmt *SelectStmt) Raw(asSQL string, position ...Position) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	pos := stmt.position
	if len(position) > 0 && position[0] != PositionCurrent {
		pos = position[0]
	}
	if pos == PositionCurrent {
		pos = PositionFields
	}
	stmt.write(pos, asSQL)
	if asSQL != "" {
		stmt.open[pos] = true
	}
	return stmt
}

// parseCondition renders a condition and binds its values at pos.
func (stmt *SelectStmt) parseCondition(pos Position, cond []interface{}) (string, error) {
	if len(cond) == 0 {
		return "", nil
	}

	field, args := cond[0], cond[1:]
	var asSQL string

	switch f := field.(type) {
	case string:
		if f == "" {
			return "", nil
		}
		asSQL = quoteField(f) + " "
	case Fragment:
		asSQL = f.SQL + " "
		stmt.bind(pos, f.Bindings...)
	case *SelectStmt:
		frag, err := f.AsCondition()
		if err != nil {
			return "", err
		}
		asSQL = frag.SQL + " "
		stmt.bind(pos, frag.Bindings...)
	default:
		return "", fmt.Errorf("%w: unsupported condition field %T", ErrInvalidArguments, field)
	}

	switch len(args) {
	case 0:
		asSQL += "= ?"
	case 1:
		if isNull(args[0]) {
			asSQL += "IS NULL"
			break
		}
		operand, err := stmt.parseOperand(pos, args[0])
		if err != nil {
			return "", err
		}
		asSQL += "= " + operand
	case 2:
		op, ok := args[0].(string)
		if !ok {
			return "", fmt.Errorf("%w: operator must be a string, got %T", ErrInvalidArguments, args[0])
		}
		asSQL += op + " "
		if isNull(args[1]) {
			asSQL += "NULL"
			break
		}
		operand, err := stmt.parseOperand(pos, args[1])
		if err != nil {
			return "", err
		}
		asSQL += operand
	default:
		return "", fmt.Errorf("%w: condition takes at most an operator and a value, got %d arguments", ErrInvalidArguments, len(args))
	}

	return asSQL, nil
}

func (stmt *SelectStmt) parseOperand(pos Position, value interface{}) (string, error) {
	switch v := value.(type) {
	case Fragment:
		stmt.bind(pos, v.Bindings...)
		return v.SQL, nil
	case *SelectStmt:
		frag, err := v.AsCondition()
		if err != nil {
			return "", err
		}
		stmt.bind(pos, frag.Bindings...)
		return frag.SQL, nil
	default:
		stmt.bind(pos, bindValue(value))
		return "?", nil
	}
}

// Build renders the statement's SQL. Placeholders are not rebound to the
// driver's bind type.
func (stmt *SelectStmt) Build() (string, error) {
	if stmt.replay {
		return "", ErrCachedQuery
	}
	if stmt.err != nil {
		return "", stmt.err
	}
	return stmt.build(), nil
}

// ToSQL generates the SELECT statement's SQL and returns the list of
// bindings, limit and offset included. It returns an empty string if the
// statement is invalid or a cached query proxy; use Build to get the error.
func (stmt *SelectStmt) ToSQL(rebind bool) (asSQL string, bindings []interface{}) {
	if stmt.replay || stmt.err != nil {
		return "", nil
	}

	asSQL = stmt.build()
	if rebind && stmt.db != nil {
		asSQL = stmt.db.Rebind(asSQL)
	}

	return asSQL, stmt.Bindings()
}

// Bindings returns the values of the statement's placeholders in rendering
// order, limit and offset included.
func (stmt *SelectStmt) Bindings() []interface{} {
	return stmt.runBindings(nil)
}

// runBindings returns either the collected bindings or the overriding
// parameters, followed by limit and offset.
func (stmt *SelectStmt) runBindings(params []interface{}) []interface{} {
	bindings := []interface{}{}
	if len(params) > 0 {
		for _, p := range params {
			bindings = append(bindings, bindValue(p))
		}
	} else {
		for pos := range stmt.bindings {
			bindings = append(bindings, stmt.bindings[pos]...)
		}
	}

	if stmt.limit != nil {
		bindings = append(bindings, *stmt.limit)
	}
	if stmt.offset != nil {
		bindings = append(bindings, *stmt.offset)
	}

	return bindings
}

func (stmt *SelectStmt) build() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	switch {
	case stmt.context == SubqueryExists:
		b.WriteString("1")
	default:
		if stmt.distinct {
			b.WriteString("DISTINCT ")
		}
		switch {
		case stmt.text[PositionFields] != "":
			b.WriteString(stmt.text[PositionFields])
		case stmt.model != nil:
			b.WriteString(quoteIdent(stmt.modelAlias) + ".*")
		default:
			b.WriteString("*")
		}
	}

	if stmt.text[PositionTables] != "" {
		b.WriteString(" FROM " + stmt.text[PositionTables])
	}
	if stmt.text[PositionJoins] != "" {
		b.WriteString(" " + stmt.text[PositionJoins])
	}

	b.WriteString(stmt.text[PositionWhere])
	b.WriteString(stmt.text[PositionGroupBy])
	if stmt.rollup {
		b.WriteString(" WITH ROLLUP")
	}
	b.WriteString(stmt.text[PositionHaving])
	b.WriteString(stmt.text[PositionOrderBy])

	if stmt.limit != nil {
		b.WriteString(" LIMIT ?")
		if stmt.offset != nil {
			b.WriteString(" OFFSET ?")
		}
	} else if stmt.offset != nil {
		b.WriteString(" LIMIT 18446744073709551615 OFFSET ?")
	}

	if stmt.lock != NoLock && (stmt.db == nil || stmt.db.supportsRowLocks()) {
		b.WriteString(" " + string(stmt.lock))
	}

	return b.String()
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if e, ok := v.(*Entity); ok && e == nil {
		return true
	}
	return false
}

// expandSlice returns the elements of a slice or array value. Byte slices
// are scalar values and are not expanded.
func expandSlice(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}
