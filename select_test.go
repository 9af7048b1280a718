package sqlz

import (
	"errors"
	"testing"

	"gopkg.in/DATA-DOG/go-sqlmock.v1"
)

// registerStubs registers two entity types referencing each other, with a
// relation table between them and a relation table of the first with
// itself.
func registerStubs(t *testing.T, dbz *DB) (a, b *Type) {
	t.Helper()

	reg := NewRegistry(dbz)
	a, err := reg.Register(TypeDef{
		Name:        "ModelStubA",
		Table:       "ModelStubATable",
		Columns:     []string{"x"},
		ForeignKeys: []ForeignKey{{Column: "b", Type: "ModelStubB"}},
		Relations: map[string][]string{
			"ModelStubRelations":  {"A"},
			"ModelStubRelationsA": {"X", "Y"},
		},
	})
	if err != nil {
		t.Fatalf("Failed registering ModelStubA: %s", err)
	}

	b, err = reg.Register(TypeDef{
		Name:        "ModelStubB",
		Table:       "ModelStubBTable",
		ForeignKeys: []ForeignKey{{Column: "a", Type: "ModelStubA"}},
		Relations: map[string][]string{
			"ModelStubRelations": {"B"},
		},
	})
	if err != nil {
		t.Fatalf("Failed registering ModelStubB: %s", err)
	}

	return a, b
}

func stubEntity(t *testing.T, typ *Type, id int64) *Entity {
	t.Helper()

	e := typ.New()
	if err := e.Set("id", id); err != nil {
		t.Fatalf("Failed setting id: %s", err)
	}
	return e
}

func TestSelect(t *testing.T) {
	runTests(t, func(dbz *DB) []test {
		return []test{
			{"from table", dbz.Select().From("foo"), "SELECT * FROM `foo`", []interface{}{}},
			{"from table with alias", dbz.Select().From("foo", "bar"), "SELECT * FROM `foo` AS `bar`", []interface{}{}},
			{"from two tables", dbz.Select().From("foo").From("bar", "foobar"), "SELECT * FROM `foo`, `bar` AS `foobar`", []interface{}{}},
			{"select all", dbz.Select("*").From("foo"), "SELECT * FROM `foo`", []interface{}{}},
			{"distinct", dbz.Select().Distinct().From("foo"), "SELECT DISTINCT * FROM `foo`", []interface{}{}},

			{"count all", dbz.Select().From("foo").CountAll(), "SELECT COUNT(*) FROM `foo`", []interface{}{}},
			{"count all with alias", dbz.Select().From("foo").Count("", "c"), "SELECT COUNT(*) AS `c` FROM `foo`", []interface{}{}},
			{"count field", dbz.Select().From("foo").Count("x"), "SELECT COUNT(`x`) FROM `foo`", []interface{}{}},
			{"count distinct", dbz.Select().From("foo").CountDistinct(""), "SELECT COUNT(DISTINCT *) FROM `foo`", []interface{}{}},
			{"count distinct with alias", dbz.Select().From("foo").CountDistinct("", "c"), "SELECT COUNT(DISTINCT *) AS `c` FROM `foo`", []interface{}{}},
			{"count distinct qualified field", dbz.Select().From("foo").CountDistinct("foo.bar"), "SELECT COUNT(DISTINCT `foo`.`bar`) FROM `foo`", []interface{}{}},

			{"fields", dbz.Select().From("foo").Fields("abc", "xyz"), "SELECT `abc`, `xyz` FROM `foo`", []interface{}{}},
			{"fields with alias", dbz.Select().From("foo").Fields("abc").Field("xyz", "bar").Fields("foofoo", "barbar"), "SELECT `abc`, `xyz` AS `bar`, `foofoo`, `barbar` FROM `foo`", []interface{}{}},
			{"qualified fields", dbz.Select().From("foo").From("bar").Fields("foo.abc", "bar.xyz").Field("bar.aaa", "bbb"), "SELECT `foo`.`abc`, `bar`.`xyz`, `bar`.`aaa` AS `bbb` FROM `foo`, `bar`", []interface{}{}},
			{"table wildcard", dbz.Select().From("foo").From("bar").Field("foo.*"), "SELECT `foo`.* FROM `foo`, `bar`", []interface{}{}},

			{"use index", dbz.Select().From("foo").UseIndex("idx_foo_test"), "SELECT * FROM `foo` USE INDEX (`idx_foo_test`)", []interface{}{}},
			{"use index then table", dbz.Select().From("foo").UseIndex("idx_foo_test").From("bar"), "SELECT * FROM `foo` USE INDEX (`idx_foo_test`), `bar`", []interface{}{}},
			{"use index for join", dbz.Select().From("foo").UseIndex("idx_foo_test", ForJoin), "SELECT * FROM `foo` USE INDEX FOR JOIN (`idx_foo_test`)", []interface{}{}},
			{"force index for group by", dbz.Select().From("foo").ForceIndex("idx_foo_test", ForGroupBy), "SELECT * FROM `foo` FORCE INDEX FOR GROUP BY (`idx_foo_test`)", []interface{}{}},
			{"ignore index for order by", dbz.Select().From("foo").IgnoreIndex("idx_foo_test", ForOrderBy), "SELECT * FROM `foo` IGNORE INDEX FOR ORDER BY (`idx_foo_test`)", []interface{}{}},

			{"join", dbz.Select().From("foo").Join("bar", DefaultJoin), "SELECT * FROM `foo` JOIN `bar`", []interface{}{}},
			{"natural left outer join", dbz.Select().From("foo").Join("bar", NaturalLeftOuterJoin), "SELECT * FROM `foo` NATURAL LEFT OUTER JOIN `bar`", []interface{}{}},
			{"straight join", dbz.Select().From("foo").Join("bar", StraightJoin), "SELECT * FROM `foo` STRAIGHT_JOIN `bar`", []interface{}{}},
			{"two joins", dbz.Select().From("foo").Join("bar", "").Join("foobar", CrossJoin), "SELECT * FROM `foo` JOIN `bar` CROSS JOIN `foobar`", []interface{}{}},
			{"join on", dbz.Select().From("foo").Join("bar", DefaultJoin).On("bar.foo", FieldRef("foo.id")), "SELECT * FROM `foo` JOIN `bar` ON `bar`.`foo` = `foo`.`id`", []interface{}{}},
			{"join using", dbz.Select().From("foo").Join("bar", DefaultJoin).Using("foofoo", "barbar"), "SELECT * FROM `foo` JOIN `bar` USING (`foofoo`, `barbar`)", []interface{}{}},
			{"join using dotted column", dbz.Select().From("foo").Join("bar", DefaultJoin).Using("foofoo.barbar"), "SELECT * FROM `foo` JOIN `bar` USING (`foofoo.barbar`)", []interface{}{}},

			{"where", dbz.Select().From("foo").Where("x", "abc"), "SELECT * FROM `foo` WHERE `x` = ?", []interface{}{"abc"}},
			{"where twice", dbz.Select().From("foo").Where("x", "abc").Where("y", 42), "SELECT * FROM `foo` WHERE `x` = ? AND `y` = ?", []interface{}{"abc", 42}},
			{"where null", dbz.Select().From("foo").Where("x", "abc").Where("y", nil), "SELECT * FROM `foo` WHERE `x` = ? AND `y` IS NULL", []interface{}{"abc"}},
			{"where not null", dbz.Select().From("foo").Where("x", "abc").Where("y", "IS NOT", nil), "SELECT * FROM `foo` WHERE `x` = ? AND `y` IS NOT NULL", []interface{}{"abc"}},
			{"where operator", dbz.Select().From("foo").Where("x", "abc").Where("y", ">", 42), "SELECT * FROM `foo` WHERE `x` = ? AND `y` > ?", []interface{}{"abc", 42}},
			{"where placeholders only", dbz.Select().From("foo").Where("x").Where("y"), "SELECT * FROM `foo` WHERE `x` = ? AND `y` = ?", []interface{}{}},

			{"and", dbz.Select().From("foo").Where("x", "abc").And("y", 42), "SELECT * FROM `foo` WHERE `x` = ? AND `y` = ?", []interface{}{"abc", 42}},
			{"and on join", dbz.Select().From("foo").Join("bar", "").On("bar.foo", FieldRef("foo.id")).AddAnd("bar.y", 42), "SELECT * FROM `foo` JOIN `bar` ON `bar`.`foo` = `foo`.`id` AND `bar`.`y` = ?", []interface{}{42}},
			{"and with field reference", dbz.Select().From("foo").Where("x", 42).And("y", "!=", FieldRef("x")), "SELECT * FROM `foo` WHERE `x` = ? AND `y` != `x`", []interface{}{42}},
			{"or", dbz.Select().From("foo").Where("x", "abc").Or("y", 42), "SELECT * FROM `foo` WHERE `x` = ? OR `y` = ?", []interface{}{"abc", 42}},
			{"or on join", dbz.Select().From("foo").Join("bar", "").On("bar.foo", FieldRef("foo.id")).AddOr("bar.y", 42), "SELECT * FROM `foo` JOIN `bar` ON `bar`.`foo` = `foo`.`id` OR `bar`.`y` = ?", []interface{}{42}},

			{"clause in where", dbz.Select().From("foo").Where().Clause("y", 42).AddAnd("x", "!=", "abc").EndClause().AddOr("z", "xyz"), "SELECT * FROM `foo` WHERE (`y` = ? AND `x` != ?) OR `z` = ?", []interface{}{42, "abc", "xyz"}},
			{"clause in on", dbz.Select().From("foo").Join("bar", "").On().Clause("y", 42).AddAnd("x", "!=", "abc").EndClause().AddOr("z", "xyz"), "SELECT * FROM `foo` JOIN `bar` ON (`y` = ? AND `x` != ?) OR `z` = ?", []interface{}{42, "abc", "xyz"}},
			{"clause in having", dbz.Select().From("foo").GroupBy("z").Having().Clause("y", 42).AddAnd("x", "!=", "abc").EndClause().AddOr("z", "xyz"), "SELECT * FROM `foo` GROUP BY `z` HAVING (`y` = ? AND `x` != ?) OR `z` = ?", []interface{}{42, "abc", "xyz"}},

			{"in", dbz.Select().From("foo").Where().In("x", 1, 2, 3), "SELECT * FROM `foo` WHERE (`x` IN(?,?,?))", []interface{}{1, 2, 3}},
			{"in without values", dbz.Select().From("foo").Where().In("x"), "SELECT * FROM `foo` WHERE 0", []interface{}{}},
			{"in with one value", dbz.Select().From("foo").Where().In("x", 1), "SELECT * FROM `foo` WHERE (`x` IN(?))", []interface{}{1}},
			{"in with a slice", dbz.Select().From("foo").Where().In("x", []int{1, 2, 3, 4}), "SELECT * FROM `foo` WHERE (`x` IN(?,?,?,?))", []interface{}{1, 2, 3, 4}},
			{"in on join without values", dbz.Select().From("foo").Join("bar", "").On().In("x"), "SELECT * FROM `foo` JOIN `bar` ON 0", []interface{}{}},
			{"in having without values", dbz.Select().From("foo").GroupBy("x").Having().In("x"), "SELECT * FROM `foo` GROUP BY `x` HAVING 0", []interface{}{}},

			{"between", dbz.Select().From("foo").Where().Between("x", 1, 42), "SELECT * FROM `foo` WHERE (`x` BETWEEN ? AND ?)", []interface{}{1, 42}},
			{"between on join", dbz.Select().From("foo").Join("bar", "").On().Between("x", 1, 42), "SELECT * FROM `foo` JOIN `bar` ON (`x` BETWEEN ? AND ?)", []interface{}{1, 42}},
			{"between in having", dbz.Select().From("foo").GroupBy("x").Having().Between("x", 1, 42), "SELECT * FROM `foo` GROUP BY `x` HAVING (`x` BETWEEN ? AND ?)", []interface{}{1, 42}},

			{"exists", dbz.Select().From("foo").Exists().From("bar").Where("x", ">", 42).Back(), "SELECT * FROM `foo` WHERE EXISTS (SELECT 1 FROM `bar` WHERE `x` > ?)", []interface{}{42}},
			{"exists on join", dbz.Select().From("foo").Join("bar", "").On().Exists().Back(), "SELECT * FROM `foo` JOIN `bar` ON EXISTS (SELECT 1)", []interface{}{}},
			{"exists in having", dbz.Select().From("foo").GroupBy("x").Having().Exists().Back(), "SELECT * FROM `foo` GROUP BY `x` HAVING EXISTS (SELECT 1)", []interface{}{}},

			{"not in", dbz.Select().From("foo").Where().Not().In("x", []int{1, 2, 3, 4}), "SELECT * FROM `foo` WHERE NOT (`x` IN(?,?,?,?))", []interface{}{1, 2, 3, 4}},
			{"not between", dbz.Select().From("foo").Where().Not().Between("x", 1, 42), "SELECT * FROM `foo` WHERE NOT (`x` BETWEEN ? AND ?)", []interface{}{1, 42}},
			{"not exists", dbz.Select().From("foo").Where().Not().Exists().From("bar").Where("x", ">", 42).Back(), "SELECT * FROM `foo` WHERE NOT EXISTS (SELECT 1 FROM `bar` WHERE `x` > ?)", []interface{}{42}},
			{"not in on join", dbz.Select().From("foo").Join("bar", "").On().Not().In("x", []int{1, 2}), "SELECT * FROM `foo` JOIN `bar` ON NOT (`x` IN(?,?))", []interface{}{1, 2}},
			{"not in having", dbz.Select().From("foo").GroupBy("x").Having().Not().In("x", []int{1, 2}), "SELECT * FROM `foo` GROUP BY `x` HAVING NOT (`x` IN(?,?))", []interface{}{1, 2}},

			{"group by", dbz.Select().From("foo").Fields("x").CountAll().GroupBy("x"), "SELECT `x`, COUNT(*) FROM `foo` GROUP BY `x`", []interface{}{}},
			{"group by with directions", dbz.Select().From("foo").Fields("x").CountAll().GroupBy("x", Ascending).GroupBy("y"), "SELECT `x`, COUNT(*) FROM `foo` GROUP BY `x` ASC, `y`", []interface{}{}},
			{"group by with rollup", dbz.Select().From("foo").Fields("x").CountAll().GroupBy("x").Rollup(), "SELECT `x`, COUNT(*) FROM `foo` GROUP BY `x` WITH ROLLUP", []interface{}{}},
			{"having", dbz.Select().From("foo").Count("x").GroupBy("y").Having("y", 2), "SELECT COUNT(`x`) FROM `foo` GROUP BY `y` HAVING `y` = ?", []interface{}{2}},
			{"having twice", dbz.Select().From("foo").Count("x").GroupBy("y").Having("y", 2).Having("z", 3), "SELECT COUNT(`x`) FROM `foo` GROUP BY `y` HAVING `y` = ? AND `z` = ?", []interface{}{2, 3}},

			{"order by", dbz.Select().From("foo").OrderBy("x"), "SELECT * FROM `foo` ORDER BY `x`", []interface{}{}},
			{"order by descending", dbz.Select().From("foo").OrderBy("x", Descending), "SELECT * FROM `foo` ORDER BY `x` DESC", []interface{}{}},
			{"order by two columns", dbz.Select().From("foo").OrderBy("x").OrderBy("y", Ascending), "SELECT * FROM `foo` ORDER BY `x`, `y` ASC", []interface{}{}},

			{"limit", dbz.Select().From("foo").Limit(100), "SELECT * FROM `foo` LIMIT ?", []interface{}{int64(100)}},
			{"limit and offset", dbz.Select().From("foo").Limit(100).Offset(42), "SELECT * FROM `foo` LIMIT ? OFFSET ?", []interface{}{int64(100), int64(42)}},
			{"offset only", dbz.Select().From("foo").Offset(42), "SELECT * FROM `foo` LIMIT 18446744073709551615 OFFSET ?", []interface{}{int64(42)}},
			{"limit after where", dbz.Select().From("foo").Where("x", 1).Limit(5), "SELECT * FROM `foo` WHERE `x` = ? LIMIT ?", []interface{}{1, int64(5)}},

			{"lock for update", dbz.Select().From("foo").Lock(LockForUpdate), "SELECT * FROM `foo` FOR UPDATE", []interface{}{}},
			{"lock in share mode", dbz.Select().From("foo").Lock(LockInShareMode), "SELECT * FROM `foo` LOCK IN SHARE MODE", []interface{}{}},
			{"for update", dbz.Select().From("foo").ForUpdate(true), "SELECT * FROM `foo` FOR UPDATE", []interface{}{}},

			{"raw fields", dbz.Select().Raw("123"), "SELECT 123", []interface{}{}},
			{"raw after fields", dbz.Select().Fields("a").Raw(", 123"), "SELECT `a`, 123", []interface{}{}},
			{"raw table", dbz.Select().From("").Raw("bar"), "SELECT * FROM bar", []interface{}{}},
			{"raw join", dbz.Select().From("foo").Join("", "").Raw("bar"), "SELECT * FROM `foo` JOIN bar", []interface{}{}},
			{"raw on", dbz.Select().From("foo").Join("bar", "").On().Raw("bar.x = foo.id"), "SELECT * FROM `foo` JOIN `bar` ON bar.x = foo.id", []interface{}{}},
			{"raw group by", dbz.Select().From("foo").GroupBy("").Raw("x"), "SELECT * FROM `foo` GROUP BY x", []interface{}{}},
			{"raw having", dbz.Select().From("foo").GroupBy("x").Having().Raw("x >= 42"), "SELECT * FROM `foo` GROUP BY `x` HAVING x >= 42", []interface{}{}},
			{"raw order by", dbz.Select().From("foo").OrderBy("").Raw("x"), "SELECT * FROM `foo` ORDER BY x", []interface{}{}},
			{"raw at position", dbz.Select().From("foo").Raw(" WHERE x = 1", PositionWhere), "SELECT * FROM `foo` WHERE x = 1", []interface{}{}},

			{
				"condition subquery",
				dbz.Select().From("foo").Where(ConditionSubquery().CountAll().From("bar").Where("bar.x", FieldRef("foo.id")), ">=", 42),
				"SELECT * FROM `foo` WHERE (SELECT COUNT(*) FROM `bar` WHERE `bar`.`x` = `foo`.`id`) >= ?",
				[]interface{}{42},
			},
			{
				"condition subquery through back",
				dbz.Select().From("foo").Where(ConditionSubquery().CountAll().From("bar").Where("bar.x", FieldRef("foo.id")).Back(), ">=", 42),
				"SELECT * FROM `foo` WHERE (SELECT COUNT(*) FROM `bar` WHERE `bar`.`x` = `foo`.`id`) >= ?",
				[]interface{}{42},
			},
			{
				"condition subqueries on both sides",
				dbz.Select().From("foo").Where(
					ConditionSubquery().CountAll().From("bar").Where("bar.x", FieldRef("foo.id")),
					">=",
					ConditionSubquery().CountAll().From("foobar").Where("foobar.z", FieldRef("foo.id")),
				),
				"SELECT * FROM `foo` WHERE (SELECT COUNT(*) FROM `bar` WHERE `bar`.`x` = `foo`.`id`) >= (SELECT COUNT(*) FROM `foobar` WHERE `foobar`.`z` = `foo`.`id`)",
				[]interface{}{},
			},
			{
				"subquery bindings keep rendering order",
				dbz.Select().From("foo").Where("a", 1).AddAnd().Exists().From("bar").Where("b", 2).Back().AddAnd("c", 3),
				"SELECT * FROM `foo` WHERE `a` = ? AND EXISTS (SELECT 1 FROM `bar` WHERE `b` = ?) AND `c` = ?",
				[]interface{}{1, 2, 3},
			},
			{
				"subquery in fields",
				dbz.Select().From("foo").Fields("a").Raw(", ").Subquery(SubqueryDefault).CountAll().From("bar").Where("x", 7).Back(),
				"SELECT `a`, (SELECT COUNT(*) FROM `bar` WHERE `x` = ?) FROM `foo`",
				[]interface{}{7},
			},
			{
				"fragment operands",
				dbz.Select().From("foo").Where(Raw("LOWER(`name`)"), "LIKE", Raw("LOWER(?)", "A%")),
				"SELECT * FROM `foo` WHERE LOWER(`name`) LIKE LOWER(?)",
				[]interface{}{"A%"},
			},
		}
	})
}

func TestSelectEntities(t *testing.T) {
	runTests(t, func(dbz *DB) []test {
		a, b := registerStubs(t, dbz)
		stubA := stubEntity(t, a, 42)
		stubB := stubEntity(t, b, 1337)

		return []test{
			{"from type", dbz.Select().From(a), "SELECT `ModelStubATable`.* FROM `ModelStubATable`", []interface{}{}},
			{"from type with alias", dbz.Select().From(a, "foo"), "SELECT `foo`.* FROM `ModelStubATable` AS `foo`", []interface{}{}},
			{"from type and tables", dbz.Select().From(a, "foobar").From("foo").From("bar", "foofoo"), "SELECT `foobar`.* FROM `ModelStubATable` AS `foobar`, `foo`, `bar` AS `foofoo`", []interface{}{}},
			{"join type through foreign key", dbz.Select().From(a).Join(b, DefaultJoin), "SELECT `ModelStubATable`.* FROM `ModelStubATable` JOIN `ModelStubBTable` ON `ModelStubBTable`.`id` = `ModelStubATable`.`b`", []interface{}{}},
			{"join type the other way", dbz.Select().From(b).Join(a, DefaultJoin), "SELECT `ModelStubBTable`.* FROM `ModelStubBTable` JOIN `ModelStubATable` ON `ModelStubATable`.`id` = `ModelStubBTable`.`a`", []interface{}{}},
			{"join type then table", dbz.Select().From(b).Join(a, DefaultJoin).Join("foo", DefaultJoin), "SELECT `ModelStubBTable`.* FROM `ModelStubBTable` JOIN `ModelStubATable` ON `ModelStubATable`.`id` = `ModelStubBTable`.`a` JOIN `foo`", []interface{}{}},
			{"join type without on", dbz.Select().From(a).Join(b, LeftJoin, false), "SELECT `ModelStubATable`.* FROM `ModelStubATable` LEFT JOIN `ModelStubBTable`", []interface{}{}},
			{"entity bound by id", dbz.Select().From(a).Where("b", stubB), "SELECT `ModelStubATable`.* FROM `ModelStubATable` WHERE `b` = ?", []interface{}{int64(1337)}},

			{
				"has any relation",
				dbz.Select().From(a).HasRelation("ModelStubRelations"),
				"SELECT `ModelStubATable`.* FROM `ModelStubATable` WHERE EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `ModelStubATable`.`id`)",
				[]interface{}{},
			},
			{
				"has any relation with alias",
				dbz.Select().From(a, "foobar").HasRelation("ModelStubRelations"),
				"SELECT `foobar`.* FROM `ModelStubATable` AS `foobar` WHERE EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `foobar`.`id`)",
				[]interface{}{},
			},
			{
				"has any relation with itself",
				dbz.Select().From(a, "foobar").HasRelation("ModelStubRelationsA"),
				"SELECT `foobar`.* FROM `ModelStubATable` AS `foobar` WHERE EXISTS (SELECT 1 FROM `ModelStubRelationsA` WHERE `X` = `foobar`.`id` OR `Y` = `foobar`.`id`)",
				[]interface{}{},
			},
			{
				"has relation after a condition",
				dbz.Select().From(a).Where("x", 1).HasRelation("ModelStubRelations"),
				"SELECT `ModelStubATable`.* FROM `ModelStubATable` WHERE `x` = ? AND EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `ModelStubATable`.`id`)",
				[]interface{}{1},
			},
			{
				"has no relation",
				dbz.Select().From(a).Where().Not().HasRelation("ModelStubRelations"),
				"SELECT `ModelStubATable`.* FROM `ModelStubATable` WHERE NOT EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `ModelStubATable`.`id`)",
				[]interface{}{},
			},
			{
				"has two relations",
				dbz.Select().From(a).HasRelation("ModelStubRelations").HasRelation("ModelStubRelationsA"),
				"SELECT `ModelStubATable`.* FROM `ModelStubATable` WHERE EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `ModelStubATable`.`id`) AND EXISTS (SELECT 1 FROM `ModelStubRelationsA` WHERE `X` = `ModelStubATable`.`id` OR `Y` = `ModelStubATable`.`id`)",
				[]interface{}{},
			},
			{
				"has relation with entity",
				dbz.Select().From(a, "foobar").HasRelation("ModelStubRelations", stubB),
				"SELECT `foobar`.* FROM `ModelStubATable` AS `foobar` WHERE EXISTS (SELECT 1 FROM `ModelStubRelations` WHERE `A` = `foobar`.`id` AND `B` = ?)",
				[]interface{}{int64(1337)},
			},
			{
				"has relation with entity of the same type",
				dbz.Select().From(a, "foobar").HasRelation("ModelStubRelationsA", stubA),
				"SELECT `foobar`.* FROM `ModelStubATable` AS `foobar` WHERE EXISTS (SELECT 1 FROM `ModelStubRelationsA` WHERE (`X` = `foobar`.`id` AND `Y` = ?) OR (`Y` = `foobar`.`id` AND `X` = ?))",
				[]interface{}{int64(42), int64(42)},
			},
		}
	})
}

func TestSelectRowLocking(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed creating mock database: %s", err)
	}
	dbz := New(db, "sqlmock")

	dbz.SelectForUpdate = true
	if asSQL, _ := dbz.Select().From("foo").ToSQL(false); asSQL != "SELECT * FROM `foo` FOR UPDATE" {
		t.Errorf("Expected locking clause with row locking on, got %s", asSQL)
	}
	if asSQL, _ := dbz.Select().From("foo").ForUpdate(false).ToSQL(false); asSQL != "SELECT * FROM `foo`" {
		t.Errorf("Expected ForUpdate(false) to drop the locking clause, got %s", asSQL)
	}
	if asSQL, _ := dbz.Select().From("foo").Exists().From("bar").Back().ToSQL(false); asSQL != "SELECT * FROM `foo` WHERE EXISTS (SELECT 1 FROM `bar`) FOR UPDATE" {
		t.Errorf("Expected the lock on the outer statement only, got %s", asSQL)
	}

	dbz.SelectForUpdate = false
	if asSQL, _ := dbz.Select().From("foo").ToSQL(false); asSQL != "SELECT * FROM `foo`" {
		t.Errorf("Expected no locking clause with row locking off, got %s", asSQL)
	}
}

func TestSelectErrors(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed creating mock database: %s", err)
	}
	dbz := New(db, "sqlmock")
	a, _ := registerStubs(t, dbz)

	tests := []struct {
		name     string
		stmt     *SelectStmt
		expected error
	}{
		{"and without condition clause", dbz.Select().From("foo").AddAnd(), ErrInvalidPosition},
		{"or without condition clause", dbz.Select().From("foo").AddOr(), ErrInvalidPosition},
		{"end clause without condition clause", dbz.Select().From("foo").EndClause(), ErrInvalidPosition},
		{"in without condition clause", dbz.Select().From("foo").In("x", 1), ErrInvalidPosition},
		{"between without condition clause", dbz.Select().From("foo").Between("x", 1, 2), ErrInvalidPosition},
		{"and on join without on", dbz.Select().From("foo").Join("bar", "").AddAnd(), ErrInvalidPosition},
		{"and at group by", dbz.Select().From("foo").GroupBy("x").AddAnd(), ErrInvalidPosition},
		{"not before any clause", dbz.Select().Not(), ErrInvalidPosition},
		{"not at fields", dbz.Select().Fields("x").Not(), ErrInvalidPosition},
		{"not at tables", dbz.Select().From("foo").Not(), ErrInvalidPosition},
		{"not at group by", dbz.Select().From("foo").GroupBy("x").Not(), ErrInvalidPosition},
		{"not at order by", dbz.Select().From("foo").OrderBy("x").Not(), ErrInvalidPosition},
		{"back without parent", dbz.Select().From("bar").Back(), ErrNoParent},
		{"too many condition arguments", dbz.Select().From("foo").Where("x", "=", 1, 2), ErrInvalidArguments},
		{"non-string operator", dbz.Select().From("foo").Where("x", 1, 2), ErrInvalidArguments},
		{"unsupported source", dbz.Select().From(42), ErrInvalidArguments},
		{"join without foreign key", dbz.Select().From(a).Join(a, DefaultJoin), ErrMissingForeignKey},
		{"unknown relation", dbz.Select().From(a).HasRelation("nope"), ErrMissingRelation},
		{"relation without entity type", dbz.Select().From("foo").HasRelation("ModelStubRelations"), ErrNoModel},
		{"unknown dynamic call", dbz.Select().Call("garbage"), ErrUnknownCall},
		{"malformed dynamic call", dbz.Select().From("foo").Call("whereXyIsOt", 1), ErrUnknownCall},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			if _, err := tst.stmt.Build(); !errors.Is(err, tst.expected) {
				t.Errorf("Failed %s: expected %v, got %v", tst.name, tst.expected, err)
			}
			if asSQL, _ := tst.stmt.ToSQL(false); asSQL != "" {
				t.Errorf("Failed %s: expected no SQL from an invalid statement, got %s", tst.name, asSQL)
			}
		})
	}
}

func TestSelectFirstErrorSticks(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed creating mock database: %s", err)
	}

	stmt := New(db, "sqlmock").Select().From("foo").AddAnd().Where("x", 1).Call("garbage")
	if !errors.Is(stmt.Err(), ErrInvalidPosition) {
		t.Errorf("Expected the first error to be kept, got %v", stmt.Err())
	}
}
