package sqlz

import (
	"context"
	"path/filepath"
	"testing"

	"gopkg.in/DATA-DOG/go-sqlmock.v1"
)

type test struct {
	name             string
	stmt             SQLStmt
	expectedSQL      string
	expectedBindings []interface{}
}

func runTests(t *testing.T, source func(dbz *DB) []test) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed creating mock database: %s", err)
	}

	for _, tst := range source(New(db, "sqlmock")) {
		t.Run(tst.name, func(t *testing.T) {
			resultingSQL, resultingBindings := tst.stmt.ToSQL(true)
			if resultingSQL != tst.expectedSQL {
				t.Errorf("Failed %s: expected %s, got %s", tst.name, tst.expectedSQL, resultingSQL)
			}

			if len(tst.expectedBindings) != len(resultingBindings) {
				t.Errorf("Failed %s: expected %d bindings, got %d", tst.name, len(tst.expectedBindings), len(resultingBindings))
			} else {
				for i := range tst.expectedBindings {
					if tst.expectedBindings[i] != resultingBindings[i] {
						t.Errorf("Failed %s: expected binding %d to be %v, got %v", tst.name, i+1, tst.expectedBindings[i], resultingBindings[i])
					}
				}
			}
		})
	}
}

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed creating mock database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, "sqlmock"), mock
}

// openSQLite opens a fresh SQLite database file and runs the provided DDL
// statements on it.
func openSQLite(t *testing.T, ddl ...string) *DB {
	t.Helper()

	db, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed opening SQLite database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed running %q: %s", stmt, err)
		}
	}

	return db
}
