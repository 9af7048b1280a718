package sqlz

import (
	"context"
	"fmt"
	"strings"
)

// entityStore materializes, fetches and filters the entities of a root
// type and its subtypes.
type entityStore interface {
	get(ctx context.Context, t *Type, id int64, row Row, db *DB) (*Entity, error)
	beforeSave(e *Entity)
	lookup(t *Type, db *DB) *SelectStmt
}

// baseStore goes through the identity map, fetching rows by id on a miss.
type baseStore struct {
	reg *Registry
}

func (s *baseStore) get(ctx context.Context, t *Type, id int64, row Row, db *DB) (*Entity, error) {
	if e, ok := s.reg.cached(t, db, id); ok {
		return e, nil
	}

	if row == nil {
		var err error
		if row, err = s.reg.fetch(ctx, t, id, db); err != nil {
			return nil, err
		}
	}

	return s.materialize(t, id, row, db), nil
}

func (s *baseStore) materialize(t *Type, id int64, row Row, db *DB) *Entity {
	e := newEntity(t, db)
	e.load(id, row)
	return s.reg.remember(e)
}

func (s *baseStore) beforeSave(*Entity) {}

func (s *baseStore) lookup(t *Type, db *DB) *SelectStmt {
	return db.Select().From(t)
}

// selectPlan returns the select-by-id statement of a type on a connection.
func (r *Registry) selectPlan(ctx context.Context, t *Type, db *DB, locked bool) (*Plan, error) {
	op := opSelect
	if locked {
		op = opSelectLocked
	}
	return r.plan(ctx, db, planKey{op: op, name: t.root.Name}, func() (string, error) {
		return db.Select().From(t.Table).Where("id").ForUpdate(locked).Build()
	})
}

// fetch reads the row of an entity, with a locking read if the
// connection's row-locking flag is set.
func (r *Registry) fetch(ctx context.Context, t *Type, id int64, db *DB) (Row, error) {
	plan, err := r.selectPlan(ctx, t, db, db.SelectForUpdate)
	if err != nil {
		return nil, err
	}

	cur, err := plan.Query(ctx, id)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.Name, id)
	}
	return cur.Row(), nil
}

func (e *Entity) insertValues() []interface{} {
	var id interface{}
	if e.id != 0 {
		id = e.id
	}
	return append([]interface{}{id}, e.columnValues()...)
}

func (t *Type) writableColumns() []string {
	cols := append([]string(nil), t.columns...)
	for _, fk := range t.foreignKeys {
		cols = append(cols, fk.Column)
	}
	return cols
}

func (r *Registry) save(ctx context.Context, e *Entity) error {
	e.typ.store.beforeSave(e)

	t, db := e.typ, e.db
	values := e.insertValues()

	plan, err := r.plan(ctx, db, planKey{op: opInsert, name: t.Name}, func() (string, error) {
		asSQL, _ := db.InsertInto(t.Table).
			Columns(append([]string{"id"}, t.writableColumns()...)...).
			Values(values...).
			ToSQL(false)
		return asSQL, nil
	})
	if err != nil {
		return err
	}

	res, err := plan.Exec(ctx, values...)
	if err != nil {
		return fmt.Errorf("save %s: %w", t.Name, err)
	}

	if e.id == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return db.handleError(fmt.Errorf("save %s: %w", t.Name, err))
		}
		e.id = id
	}

	r.remember(e)
	return nil
}

func (r *Registry) update(ctx context.Context, e *Entity) error {
	t, db := e.typ, e.db
	values := append(e.columnValues(), e.id)

	plan, err := r.plan(ctx, db, planKey{op: opUpdate, name: t.Name}, func() (string, error) {
		stmt := db.Update(t.Table)
		for _, col := range t.writableColumns() {
			stmt.Set(col, nil)
		}
		asSQL, _ := stmt.Where(Eq("id", e.id)).ToSQL(false)
		return asSQL, nil
	})
	if err != nil {
		return err
	}

	if _, err := plan.Exec(ctx, values...); err != nil {
		return fmt.Errorf("update %s %d: %w", t.Name, e.id, err)
	}
	return nil
}

func (r *Registry) delete(ctx context.Context, e *Entity) error {
	t, db := e.typ, e.db

	plan, err := r.plan(ctx, db, planKey{op: opDelete, name: t.root.Name}, func() (string, error) {
		asSQL, _ := db.DeleteFrom(t.Table).Where(Eq("id", e.id)).ToSQL(false)
		return asSQL, nil
	})
	if err != nil {
		return err
	}

	if _, err := plan.Exec(ctx, e.id); err != nil {
		return fmt.Errorf("delete %s %d: %w", t.Name, e.id, err)
	}

	r.forget(e)
	return nil
}

// GetBulk returns the entities with the provided ids, in the order the
// store returns them. Ids that do not exist are skipped.
func (t *Type) GetBulk(ctx context.Context, ids []int64, db ...*DB) ([]*Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return t.Lookup(db...).Where().In("id", ids).Entities(ctx)
}

// GetBulkOrdered is like GetBulk, but returns the entities in the order of
// ids. It relies on MySQL's FIELD function.
func (t *Type) GetBulkOrdered(ctx context.Context, ids []int64, db ...*DB) ([]*Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	stmt := t.Lookup(db...).Where().In("id", ids)
	if stmt.err != nil {
		return nil, stmt.err
	}

	stmt.OrderBy("")
	stmt.write(PositionOrderBy, "FIELD(`id`,"+strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")+")")
	for _, id := range ids {
		stmt.bind(PositionOrderBy, id)
	}

	return stmt.Entities(ctx)
}
