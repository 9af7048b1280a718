package sqlz

import "testing"

func TestUpdate(t *testing.T) {
	runTests(t, func(dbz *DB) []test {
		return []test{
			{
				"simple update",
				dbz.Update("table").Set("something", 3).Where(Eq("id", 2)),
				"UPDATE `table` SET `something` = ? WHERE `id` = ?",
				[]interface{}{3, 2},
			},

			{
				"update keeps column order",
				dbz.Update("table").Set("b", 1).Set("a", 2).Set("b", 3),
				"UPDATE `table` SET `b` = ?, `a` = ?",
				[]interface{}{3, 2},
			},

			{
				"update with map and conditions",
				dbz.Update("table").SetMap(map[string]interface{}{"string": "something", "integer": 3}).Where(Or(Eq("id", 2), And(Gte("integer", 3), Like("string", "some%")))),
				"UPDATE `table` SET `integer` = ?, `string` = ? WHERE `id` = ? OR (`integer` >= ? AND `string` LIKE ?)",
				[]interface{}{3, "something", 2, 3, "some%"},
			},

			{
				"conditional set",
				dbz.Update("table").SetIf("a", 1, true).SetIf("b", 2, false).Where(Eq("id", 5)),
				"UPDATE `table` SET `a` = ? WHERE `id` = ?",
				[]interface{}{1, 5},
			},

			{
				"fragment value",
				dbz.Update("table").Set("counter", Raw("`counter` + ?", 1)).Where(Eq("id", 5), IsNotNull("counter")),
				"UPDATE `table` SET `counter` = `counter` + ? WHERE `id` = ? AND `counter` IS NOT NULL",
				[]interface{}{1, 5},
			},

			{
				"in conditions",
				dbz.Update("table").Set("a", nil).Where(In("id", 1, 2), NotIn("b", "x")),
				"UPDATE `table` SET `a` = ? WHERE `id` IN (?, ?) AND `b` NOT IN (?)",
				[]interface{}{nil, 1, 2, "x"},
			},
		}
	})
}
