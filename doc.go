// Package sqlz (pronounced "sequelize") is an SQL query builder and a small
// entity runtime for Go projects, based on github.com/jmoiron/sqlx.
//
// The query builder is positional: a SelectStmt remembers which clause it is
// currently building (fields, tables, joins, WHERE, GROUP BY, HAVING or
// ORDER BY), and boolean combinators such as AddAnd, AddOr, Not, In and
// Between extend whichever condition clause is open. Bindings are kept per
// clause, so the final list of values always follows the order of the
// placeholders in the rendered SQL, regardless of the order methods were
// called in. Structural mistakes are recorded on the statement and returned
// by Build and by every execution method.
//
// Statements that are built the same way over and over (typically inside a
// loop) can be bound to a Cache slot. The first statement prepares its SQL
// and stores the plan in the slot; later statements skip rendering entirely
// and only collect their bindings.
//
// The entity runtime maps table rows to Entity values through a Registry of
// entity types. Every connection has its own identity map per type, so the
// same row is always represented by the same *Entity on a given connection.
// Types may take part in relation tables (with another type or with
// themselves), and may form single-table inheritance hierarchies where a
// discriminator column selects the concrete type of each row.
//
// Transactions are run with Transactional, which commits or rolls back as
// necessary and can restart transactions that failed with a deadlock. When
// row locking is enabled for a transaction, entities read inside it live in
// a separate identity map generation that is thrown away when the
// transaction ends.
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/ido50/sqlz/v2"
//		_ "github.com/go-sql-driver/mysql"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		db, err := sqlz.Open(ctx, "mysql", "user:pass@/app")
//		if err != nil {
//			panic(err)
//		}
//
//		rows, err := db.Select().
//			From("users").
//			Where("age", ">", 18).
//			AddOr().Not().In("status", "banned", "inactive").
//			OrderBy("name").
//			Execute(ctx)
//		if err != nil {
//			panic(err)
//		}
//
//		reg := sqlz.NewRegistry(db)
//		users, _ := reg.Register(sqlz.TypeDef{
//			Name:    "User",
//			Table:   "users",
//			Columns: []string{"name", "age", "status"},
//		})
//
//		user, err := users.Get(ctx, 1)
//		if err != nil {
//			panic(err)
//		}
//
//		fmt.Println(rows, user.Get("name"))
//	}
package sqlz
