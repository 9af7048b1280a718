package sqlz

// Cache is a slot holding the prepared plan of a statement that is built the
// same way over and over, e.g. inside a loop. The zero value is an empty
// slot, ready for use.
//
//	var slot sqlz.Cache
//	for _, id := range ids {
//		rows, err := db.Cached(&slot).From("foo").Where("x", ">=", id).Execute(ctx)
//		...
//	}
//
// The first statement obtained from an empty slot is a regular statement
// that stores its plan in the slot when run. Every later statement is a
// proxy that skips rendering and only collects bindings, then executes the
// stored plan. The proxy does not verify that it is called the same way as
// the statement that filled the slot; if it is not, bindings are silently
// wrong. Rendering or preparing a proxy fails with ErrCachedQuery.
type Cache struct {
	plan *Plan
}

// Ready reports whether the slot holds a plan.
func (c *Cache) Ready() bool {
	return c != nil && c.plan != nil
}

// SQL returns the text of the cached plan, if any.
func (c *Cache) SQL() string {
	if c.plan == nil {
		return ""
	}
	return c.plan.SQL
}

// Reset closes and drops the cached plan.
func (c *Cache) Reset() error {
	if c.plan == nil {
		return nil
	}
	err := c.plan.Close()
	c.plan = nil
	return err
}

// Cached returns a statement bound to the cache slot: a regular statement if
// the slot is empty, a binding-collecting proxy otherwise.
func (db *DB) Cached(c *Cache) *SelectStmt {
	stmt := db.Select()
	stmt.slot = c
	stmt.replay = c.Ready()
	return stmt
}
