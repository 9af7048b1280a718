package sqlz

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DB is a wrapper around sqlx.DB (which is a wrapper around sql.DB). Besides
// the connection pool it carries the per-connection state the builder and the
// entity runtime depend on: a stable identifier, the row-locking flag and the
// currently open transaction.
//
// A DB is meant to be used by a single goroutine at a time.
type DB struct {
	*sqlx.DB

	// SelectForUpdate is the row-locking flag. While it is set, statements
	// created with Select append a FOR UPDATE clause, and entity fetches use
	// their locking select-by-id plan.
	SelectForUpdate bool

	// ErrHandlers is a list of error handler functions called with every
	// error returned by the store
	ErrHandlers []func(err error)

	id         string
	cfg        Config
	tx         *sqlx.Tx
	txState    TxState
	txPrevLock *bool
	txLocking  bool
	hooks      []TxHook
}

// SQLStmt is an interface representing a general SQL statement. All
// specific statement types (e.g. Select, UpdateStmt, etc.)
// implement this interface
type SQLStmt interface {
	ToSQL(bool) (string, []interface{})
}

// Identifiable is implemented by values that bind as their numeric id when
// used as a statement parameter. Entities implement it.
type Identifiable interface {
	GetID() int64
}

// New creates a new DB instance from an underlying sql.DB object.
// It requires the name of the SQL driver in order to use the correct
// placeholders when generating SQL
func New(db *sql.DB, driverName string) *DB {
	return Newx(sqlx.NewDb(db, driverName))
}

// Newx creates a new DB instance from an underlying sqlx.DB object
func Newx(db *sqlx.DB) *DB {
	return &DB{
		DB:  db,
		id:  uuid.NewString(),
		cfg: DefaultConfig(),
	}
}

// Open opens a connection pool for the given driver and DSN and verifies it
// is reachable.
func Open(ctx context.Context, driverName, dsn string) (*DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	return Newx(db), nil
}

// OpenMySQL opens a MySQL connection pool from a driver configuration.
func OpenMySQL(ctx context.Context, cfg *mysql.Config) (*DB, error) {
	return Open(ctx, "mysql", cfg.FormatDSN())
}

// WithConfig replaces the configuration of the connection, after clamping
// invalid values to their defaults.
func (db *DB) WithConfig(cfg Config) *DB {
	cfg.validate()
	db.cfg = cfg
	return db
}

// ID returns the stable identifier of the connection. Identity maps and
// plan caches are keyed by it.
func (db *DB) ID() string {
	return db.id
}

// Config returns the connection's configuration.
func (db *DB) Config() Config {
	return db.cfg
}

func (db *DB) logger() *slog.Logger {
	return db.cfg.Logger
}

// supportsRowLocks reports whether the dialect understands locking clauses.
// SQLite locks the whole database for writing transactions instead.
func (db *DB) supportsRowLocks() bool {
	return db.DriverName() != "sqlite3"
}

// handleError passes a store error through the connection's error handlers.
func (db *DB) handleError(err error) error {
	if err != nil {
		for _, handler := range db.ErrHandlers {
			handler(err)
		}
	}
	return err
}

// exec runs a statement outside the plan cache, inside the current
// transaction if there is one.
func (db *DB) exec(ctx context.Context, asSQL string, bindings ...interface{}) (sql.Result, error) {
	var (
		res sql.Result
		err error
	)
	if db.tx != nil {
		res, err = db.tx.ExecContext(ctx, asSQL, bindings...)
	} else {
		res, err = db.DB.ExecContext(ctx, asSQL, bindings...)
	}
	return res, db.handleError(err)
}

// WhereCondition is an interface describing conditions
// that can be used inside an SQL WHERE clause of UPDATE and DELETE
// statements. It defines the Parse function that generates SQL (with
// placeholders) from the condition(s) and returns a list of data bindings
// for the placeholders (if any)
type WhereCondition interface {
	Parse() (asSQL string, bindings []interface{})
}

// SimpleCondition represents the most basic WHERE
// condition, where one left-value (usually a column)
// is compared with a right-value using an operator (e.g.
// "=", "<>", ">=", ...)
type SimpleCondition struct {
	Left     string
	Right    interface{}
	Operator string
}

// AndOrCondition represents a group of AND or OR
// conditions.
type AndOrCondition struct {
	Or         bool
	Conditions []WhereCondition
}

// SQLCondition represents a condition written directly in
// SQL, allows using complex SQL conditions not yet supported
// by sqlz
type SQLCondition struct {
	Condition string
	Binds     []interface{}
}

// InCondition is a struct representing IN and NOT IN conditions
type InCondition struct {
	NotIn bool
	Left  string
	Right []interface{}
}

// And joins multiple where conditions as an AndOrCondition
// (representing AND conditions).
func And(conds ...WhereCondition) AndOrCondition {
	return AndOrCondition{false, conds}
}

// Or joins multiple where conditions as an AndOrCondition
// (representing OR conditions).
func Or(conds ...WhereCondition) AndOrCondition {
	return AndOrCondition{true, conds}
}

// Eq represents a simple equality condition ("=" operator)
func Eq(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, "="}
}

// Ne represents a simple non-equality condition ("!=" operator)
func Ne(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, "!="}
}

// Gt represents a simple greater-than condition (">" operator)
func Gt(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, ">"}
}

// Gte represents a simple greater-than-or-equals condition (">=" operator)
func Gte(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, ">="}
}

// Lt represents a simple less-than condition ("<" operator)
func Lt(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, "<"}
}

// Lte represents a simple less-than-or-equals condition ("<=" operator)
func Lte(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, "<="}
}

// Like represents a wildcard equality condition ("LIKE" operator)
func Like(col string, value interface{}) SimpleCondition {
	return SimpleCondition{col, value, "LIKE"}
}

// IsNull represents a simple nullity condition ("IS NULL" operator)
func IsNull(col string) SimpleCondition {
	return SimpleCondition{col, nil, "IS NULL"}
}

// IsNotNull represents a simple non-nullity condition ("IS NOT NULL" operator)
func IsNotNull(col string) SimpleCondition {
	return SimpleCondition{col, nil, "IS NOT NULL"}
}

// SQLCond creates an SQL condition, allowing to use complex SQL conditions
// that are not yet supported by sqlz. Question marks must be used for
// placeholders in the condition regardless of the database driver.
func SQLCond(condition string, binds ...interface{}) SQLCondition {
	return SQLCondition{condition, binds}
}

// In creates an IN condition for matching the value of a column
// against an array of possible values
func In(col string, values ...interface{}) InCondition {
	return InCondition{false, col, values}
}

// NotIn creates a NOT IN condition for checking that the value
// of a column is not one of the defined values
func NotIn(col string, values ...interface{}) InCondition {
	return InCondition{true, col, values}
}

// Parse implements the WhereCondition interface, generating SQL from
// the condition
func (simple SimpleCondition) Parse() (asSQL string, bindings []interface{}) {
	asSQL = quoteField(simple.Left) + " " + simple.Operator

	if simple.Right != nil {
		placeholder := "?"
		if frag, isFragment := simple.Right.(Fragment); isFragment {
			placeholder = frag.SQL
			bindings = append(bindings, frag.Bindings...)
		} else {
			bindings = append(bindings, bindValue(simple.Right))
		}
		asSQL += " " + placeholder
	}

	return asSQL, bindings
}

// Parse implements the WhereCondition interface, generating SQL from
// the condition
func (cond SQLCondition) Parse() (asSQL string, bindings []interface{}) {
	return cond.Condition, cond.Binds
}

// Parse implements the WhereCondition interface, generating SQL from
// the condition
func (in InCondition) Parse() (asSQL string, bindings []interface{}) {
	asSQL = quoteField(in.Left)
	if in.NotIn {
		asSQL += " NOT"
	}
	asSQL += " IN ("

	var placeholders []string

	for _, val := range in.Right {
		placeholders = append(placeholders, "?")
		bindings = append(bindings, bindValue(val))
	}

	asSQL += strings.Join(placeholders, ", ") + ")"

	return asSQL, bindings
}

// Parse implements the WhereCondition interface, generating SQL from
// the condition
func (andOr AndOrCondition) Parse() (asSQL string, bindings []interface{}) {
	var sqls []string
	for _, cond := range andOr.Conditions {
		innerSQL, innerBindings := cond.Parse()
		sqls = append(sqls, innerSQL)
		bindings = append(bindings, innerBindings...)
	}
	op := " AND "
	if andOr.Or {
		op = " OR "
	}
	return "(" + strings.Join(sqls, op) + ")", bindings
}

func parseConditions(conds []WhereCondition) (asSQL string, bindings []interface{}) {
	if len(conds) > 1 {
		asSQL, bindings = (AndOrCondition{false, conds}).Parse()
	} else if len(conds) == 1 {
		asSQL, bindings = conds[0].Parse()
	}

	if strings.HasPrefix(asSQL, "(") {
		asSQL = strings.TrimPrefix(strings.TrimSuffix(asSQL, ")"), "(")
	}

	return asSQL, bindings
}

// quoteIdent wraps a single identifier in backticks.
func quoteIdent(name string) string {
	return "`" + name + "`"
}

// quoteField quotes a possibly table-qualified field name: "a.b" becomes
// `a`.`b`, "a.*" becomes `a`.*, "*" stays as is, anything else `name`.
func quoteField(name string) string {
	if name == "*" {
		return name
	}
	if i := strings.Index(name, "."); i > 0 {
		table, column := name[:i], name[i+1:]
		if column == "*" {
			return quoteIdent(table) + ".*"
		}
		return quoteIdent(table) + "." + quoteIdent(column)
	}
	return quoteIdent(name)
}

// bindValue converts entities to their id for binding.
func bindValue(v interface{}) interface{} {
	if ident, ok := v.(Identifiable); ok {
		return ident.GetID()
	}
	return v
}
