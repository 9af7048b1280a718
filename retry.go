package sqlz

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// MySQL server error numbers of transactions that can be restarted.
const (
	mysqlLockWaitTimeout uint16 = 1205 // SQLSTATE HY000
	mysqlDeadlock        uint16 = 1213 // SQLSTATE 40001
)

// RetryPredicate decides whether a failed transaction is run again. attempt
// is the number of the attempt that just failed, starting at 1.
type RetryPredicate func(err error, attempt int) bool

// IsSerializationFailure reports whether err is a store error after which
// the transaction can be restarted: MySQL deadlocks and lock wait timeouts,
// and SQLite busy or locked databases.
func IsSerializationFailure(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	return false
}

// RetryOn returns a predicate restarting transactions that failed with a
// serialization failure, up to n restarts.
func RetryOn(n int) RetryPredicate {
	return func(err error, attempt int) bool {
		return attempt <= n && IsSerializationFailure(err)
	}
}
