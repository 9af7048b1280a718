package sqlz

import (
	"context"
	"fmt"
)

// inheritanceStore decorates baseStore for single-table inheritance
// hierarchies: rows are materialized as the subtype named by the
// discriminator column (or by the resolve function), new entities store
// their type name in that column, and subtype lookups filter on it.
type inheritanceStore struct {
	*baseStore
	column  string
	resolve func(Row) string
}

func (s *inheritanceStore) get(ctx context.Context, t *Type, id int64, row Row, db *DB) (*Entity, error) {
	if e, ok := s.reg.cached(t, db, id); ok {
		return e, nil
	}

	if row == nil {
		var err error
		if row, err = s.reg.fetch(ctx, t, id, db); err != nil {
			return nil, err
		}
	}

	return s.materialize(s.concreteType(t, row), id, row, db), nil
}

// concreteType picks the type to materialize a row as. Unknown names and
// types outside the hierarchy fall back to the requested type.
func (s *inheritanceStore) concreteType(t *Type, row Row) *Type {
	var name string
	if s.resolve != nil {
		name = s.resolve(row)
	} else if v, ok := row[s.column]; ok && v != nil {
		name = fmt.Sprint(v)
	}
	if name == "" || name == t.Name {
		return t
	}

	concrete, err := s.reg.Type(name)
	if err != nil || concrete.root != t.root {
		return t
	}
	return concrete
}

func (s *inheritanceStore) beforeSave(e *Entity) {
	if e.id == 0 && s.resolve == nil {
		e.values[s.column] = e.typ.Name
	}
}

func (s *inheritanceStore) lookup(t *Type, db *DB) *SelectStmt {
	stmt := s.baseStore.lookup(t, db)
	if t.parent != nil && s.resolve == nil {
		stmt.Where(s.column, t.Name)
	}
	return stmt
}
