package sqlz

import (
	"context"
	"fmt"
)

// Entity is a row of an entity type, kept unique per connection by the
// registry's identity maps. Foreign key columns hold either the referenced
// id or, once resolved, the referenced entity.
type Entity struct {
	typ    *Type
	db     *DB
	id     int64
	values map[string]interface{}
	fks    map[string]interface{}
}

func newEntity(t *Type, db *DB) *Entity {
	return &Entity{
		typ:    t,
		db:     db,
		values: make(map[string]interface{}),
		fks:    make(map[string]interface{}),
	}
}

// load copies a row into the entity, keeping foreign keys as raw ids.
func (e *Entity) load(id int64, row Row) {
	e.id = id
	for name, value := range row {
		switch {
		case name == "id":
		case e.typ.isForeignKey(name):
			if ref, ok := toInt64(value); ok && ref != 0 {
				e.fks[name] = ref
			} else {
				e.fks[name] = nil
			}
		default:
			e.values[name] = value
		}
	}
}

// ID returns the entity's id, 0 if it has not been saved.
func (e *Entity) ID() int64 {
	return e.id
}

// GetID implements Identifiable, so entities can be bound as statement
// parameters.
func (e *Entity) GetID() int64 {
	return e.id
}

// Type returns the concrete type of the entity.
func (e *Entity) Type() *Type {
	return e.typ
}

// DB returns the connection owning the entity.
func (e *Entity) DB() *DB {
	return e.db
}

// Get returns the value of a column. For foreign keys, it returns the
// referenced id (or nil); use Ref to obtain the referenced entity.
func (e *Entity) Get(column string) interface{} {
	if column == "id" {
		return e.id
	}
	if e.typ.isForeignKey(column) {
		switch ref := e.fks[column].(type) {
		case *Entity:
			return ref.id
		case int64:
			return ref
		}
		return nil
	}
	return e.values[column]
}

// Values returns a copy of the entity's plain column values.
func (e *Entity) Values() Row {
	row := make(Row, len(e.values))
	for k, v := range e.values {
		row[k] = v
	}
	return row
}

// Set assigns a column. Foreign key columns only accept an entity of the
// referenced type or nil. The id can only be set while it is 0.
func (e *Entity) Set(column string, value interface{}) error {
	if column == "id" {
		id, ok := toInt64(value)
		if !ok {
			return fmt.Errorf("%w: id must be an integer, got %T", ErrUnexpectedValue, value)
		}
		if e.id != 0 && e.id != id {
			return fmt.Errorf("%w: %s %d", ErrImmutableID, e.typ.Name, e.id)
		}
		e.id = id
		return nil
	}

	if refType, ok := e.typ.fkTypes[column]; ok {
		if isNull(value) {
			e.fks[column] = nil
			return nil
		}
		ref, ok := value.(*Entity)
		if !ok || !ref.typ.isA(refType) {
			return fmt.Errorf("%w: %s.%s must be a %s entity or nil, got %T", ErrUnexpectedValue, e.typ.Name, column, refType, value)
		}
		e.fks[column] = ref
		return nil
	}

	e.values[column] = value
	return nil
}

// isA reports whether the type is named name or descends from it.
func (t *Type) isA(name string) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.Name == name {
			return true
		}
	}
	return false
}

// Ref resolves a foreign key to the referenced entity, fetching it through
// the identity map of the entity's connection. Unset keys return nil.
func (e *Entity) Ref(ctx context.Context, column string) (*Entity, error) {
	refName, ok := e.typ.fkTypes[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no foreign key %q", ErrMissingForeignKey, e.typ.Name, column)
	}

	switch ref := e.fks[column].(type) {
	case *Entity:
		return ref, nil
	case int64:
		refType, err := e.typ.registry.Type(refName)
		if err != nil {
			return nil, err
		}
		resolved, err := refType.GetOn(ctx, e.db, ref)
		if err != nil {
			return nil, err
		}
		e.fks[column] = resolved
		return resolved, nil
	}
	return nil, nil
}

// LoadForeignKeys resolves all foreign keys of the entity.
func (e *Entity) LoadForeignKeys(ctx context.Context) error {
	for _, fk := range e.typ.foreignKeys {
		if _, err := e.Ref(ctx, fk.Column); err != nil {
			return err
		}
	}
	return nil
}

// columnValues returns the id, the plain columns and the foreign keys of
// the entity in the order of the type's insert statement.
func (e *Entity) columnValues() []interface{} {
	values := make([]interface{}, 0, len(e.typ.columns)+len(e.typ.foreignKeys))
	for _, col := range e.typ.columns {
		values = append(values, bindValue(e.values[col]))
	}
	for _, fk := range e.typ.foreignKeys {
		values = append(values, e.Get(fk.Column))
	}
	return values
}

// Save inserts the entity and registers it in the identity map of its
// connection. An id of 0 is left to the store to assign.
func (e *Entity) Save(ctx context.Context) error {
	return e.typ.registry.save(ctx, e)
}

// Update writes the entity's columns back to the store. Entities that were
// never saved are saved instead.
func (e *Entity) Update(ctx context.Context) error {
	if e.id == 0 {
		return e.Save(ctx)
	}
	return e.typ.registry.update(ctx, e)
}

// Delete removes the entity from the store and from the identity map.
func (e *Entity) Delete(ctx context.Context) error {
	return e.typ.registry.delete(ctx, e)
}

// Refetch reloads the entity's columns from the store.
func (e *Entity) Refetch(ctx context.Context) error {
	row, err := e.typ.registry.fetch(ctx, e.typ, e.id, e.db)
	if err != nil {
		return err
	}
	e.values = make(map[string]interface{})
	e.fks = make(map[string]interface{})
	e.load(e.id, row)
	return nil
}

// Lock reloads the entity with a locking read. It only holds the lock
// inside a transaction.
func (e *Entity) Lock(ctx context.Context) error {
	if e.db.SelectForUpdate {
		return e.Refetch(ctx)
	}

	e.db.SelectForUpdate = true
	defer func() {
		e.db.SelectForUpdate = false
	}()
	return e.Refetch(ctx)
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%d)", e.typ.Name, e.id)
}
