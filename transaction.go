package sqlz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxState is the transaction state of a connection.
type TxState int

// Transaction states. A connection starts out idle, becomes active when a
// transaction begins and ends up committed or rolled back; TxRetrying marks
// the time between a failed attempt and the next one.
const (
	TxIdle TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
	TxRetrying
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	case TxRetrying:
		return "retrying"
	}
	return fmt.Sprintf("TxState(%d)", int(s))
}

// TxHook is notified when transactions begin and end on a connection. The
// entity registry uses it to isolate the identity maps of row-locking
// transactions.
type TxHook interface {
	TransactionStarted(db *DB, rowLocking bool)
	TransactionEnded(db *DB, rowLocking bool)
}

type txOptions struct {
	retry   RetryPredicate
	lock    *bool
	sqlOpts *sql.TxOptions
}

// TxOption configures a transaction.
type TxOption func(*txOptions)

// WithRetry runs the transaction again when it fails with a serialization
// failure (see IsSerializationFailure) and the predicate allows it. Other
// errors are returned right away. Attempts are capped by
// Config.MaxTransactionAttempts.
func WithRetry(retry RetryPredicate) TxOption {
	return func(o *txOptions) {
		o.retry = retry
	}
}

// WithRowLocking sets the connection's row-locking flag for the duration of
// the transaction. With locking enabled, entities read inside the
// transaction are kept in a separate identity map generation that is
// discarded when the transaction ends.
func WithRowLocking(lock bool) TxOption {
	return func(o *txOptions) {
		o.lock = &lock
	}
}

// WithTxOptions sets the isolation level and read-only flag of the
// underlying transaction.
func WithTxOptions(opts *sql.TxOptions) TxOption {
	return func(o *txOptions) {
		o.sqlOpts = opts
	}
}

func collectTxOptions(opts []TxOption) txOptions {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AddTxHook registers a transaction hook on the connection.
func (db *DB) AddTxHook(hook TxHook) {
	for _, h := range db.hooks {
		if h == hook {
			return
		}
	}
	db.hooks = append(db.hooks, hook)
}

// TxState returns the connection's transaction state.
func (db *DB) TxState() TxState {
	return db.txState
}

// InTransaction reports whether a transaction is open on the connection.
func (db *DB) InTransaction() bool {
	return db.tx != nil
}

// BeginTransaction opens a transaction on the connection. All statements
// executed through the connection run inside it until Commit or Rollback.
func (db *DB) BeginTransaction(ctx context.Context, opts ...TxOption) error {
	if db.tx != nil {
		return ErrNestedTransaction
	}
	o := collectTxOptions(opts)

	tx, err := db.BeginTxx(ctx, o.sqlOpts)
	if err != nil {
		return db.handleError(fmt.Errorf("failed starting transaction: %w", err))
	}

	db.tx = tx
	db.txState = TxActive

	if o.lock != nil {
		prev := db.SelectForUpdate
		db.txPrevLock = &prev
		db.SelectForUpdate = *o.lock
		db.txLocking = *o.lock
	}

	for _, h := range db.hooks {
		h.TransactionStarted(db, db.txLocking)
	}
	return nil
}

// Commit commits the open transaction.
func (db *DB) Commit() error {
	if db.tx == nil {
		return sql.ErrTxDone
	}

	err := db.tx.Commit()
	db.endTransaction()
	if err != nil {
		db.txState = TxRolledBack
		return db.handleError(fmt.Errorf("failed committing transaction: %w", err))
	}

	db.txState = TxCommitted
	return nil
}

// Rollback rolls the open transaction back.
func (db *DB) Rollback() error {
	if db.tx == nil {
		return sql.ErrTxDone
	}

	err := db.tx.Rollback()
	db.endTransaction()
	db.txState = TxRolledBack
	if err != nil {
		return db.handleError(fmt.Errorf("failed rolling back transaction: %w", err))
	}
	return nil
}

func (db *DB) endTransaction() {
	db.tx = nil

	if db.txPrevLock != nil {
		db.SelectForUpdate = *db.txPrevLock
		db.txPrevLock = nil
	}

	locking := db.txLocking
	db.txLocking = false
	for _, h := range db.hooks {
		h.TransactionEnded(db, locking)
	}
}

// Transactional runs the provided function inside a transaction. If the
// function returns an error, the transaction is automatically rolled
// back. Otherwise, the transaction is committed.
func (db *DB) Transactional(f func(db *DB) error, opts ...TxOption) error {
	return db.TransactionalContext(context.Background(), f, opts...)
}

// TransactionalContext runs the provided function inside a transaction. If
// the function returns an error, the transaction is rolled back; if the
// error is a serialization failure and a retry predicate was given and
// allows it, the whole transaction then runs again.
// Otherwise the transaction is committed.
func (db *DB) TransactionalContext(ctx context.Context, f func(db *DB) error, opts ...TxOption) error {
	o := collectTxOptions(opts)

	for attempt := 1; ; attempt++ {
		err := db.runTransaction(ctx, f, opts)
		if err == nil {
			return nil
		}

		if o.retry == nil || attempt >= db.cfg.MaxTransactionAttempts || !IsSerializationFailure(err) || !o.retry(err, attempt) {
			return err
		}

		db.txState = TxRetrying
		db.logger().Warn("restarting transaction", "db", db.id, "attempt", attempt, "error", err)
	}
}

func (db *DB) runTransaction(ctx context.Context, f func(db *DB) error, opts []TxOption) (err error) {
	if err := db.BeginTransaction(ctx, opts...); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			db.Rollback()
			panic(p)
		}
	}()

	if err := f(db); err != nil {
		if rbErr := db.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return db.Commit()
}
