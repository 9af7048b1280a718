package sqlz

import (
	"context"
	"fmt"
)

// ForeignKey declares a column referencing the id of another entity type.
type ForeignKey struct {
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
}

// TypeDef declares an entity type. Relations map a relation table to the
// column(s) holding this type's id in it: one column for a relation with
// another type, two for a relation of the type with itself.
//
// A type with a Parent is a subtype in a single-table inheritance hierarchy:
// it shares the table and identity map of its root type, and inherits its
// columns, foreign keys and relations. A root type becomes polymorphic when
// it sets Discriminator (the column storing the concrete type name), Resolve
// (a function picking the concrete type name for a row) or Polymorphic, in
// which case the connection's Config.DiscriminatorColumn is used.
type TypeDef struct {
	Name          string              `yaml:"name"`
	Table         string              `yaml:"table"`
	Parent        string              `yaml:"parent"`
	Columns       []string            `yaml:"columns"`
	ForeignKeys   []ForeignKey        `yaml:"foreign_keys"`
	Relations     map[string][]string `yaml:"relations"`
	Discriminator string              `yaml:"discriminator"`
	Polymorphic   bool                `yaml:"polymorphic"`
	Resolve       func(Row) string    `yaml:"-"`
}

// Relation describes how a type takes part in a relation table.
type Relation struct {
	Table   string
	Columns []string
}

// Homogeneous reports whether the relation links a type with itself.
func (rel Relation) Homogeneous() bool {
	return len(rel.Columns) == 2
}

// Type is a registered entity type.
type Type struct {
	Name  string
	Table string

	registry    *Registry
	parent      *Type
	root        *Type
	columns     []string
	foreignKeys []ForeignKey
	fkTypes     map[string]string
	relations   map[string]Relation
	store       entityStore
}

// Registry returns the registry the type belongs to.
func (t *Type) Registry() *Registry {
	return t.registry
}

// Parent returns the parent type of a subtype, nil for root types.
func (t *Type) Parent() *Type {
	return t.parent
}

// Root returns the root of the type's inheritance hierarchy.
func (t *Type) Root() *Type {
	return t.root
}

// Columns returns the type's plain columns, foreign keys excluded.
func (t *Type) Columns() []string {
	return append([]string(nil), t.columns...)
}

// ForeignKeys returns the type's foreign keys in declaration order.
func (t *Type) ForeignKeys() []ForeignKey {
	return append([]ForeignKey(nil), t.foreignKeys...)
}

// Relation returns the type's side of a relation table.
func (t *Type) Relation(table string) (Relation, error) {
	rel, ok := t.relations[table]
	if !ok {
		return Relation{}, fmt.Errorf("%w: %s on %s", ErrMissingRelation, table, t.Name)
	}
	return rel, nil
}

// IsA reports whether t is other or one of its subtypes.
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// foreignKeyTo returns the column referencing other.
func (t *Type) foreignKeyTo(other *Type) (string, bool) {
	for _, fk := range t.foreignKeys {
		if fk.Type == other.Name {
			return fk.Column, true
		}
	}
	return "", false
}

func (t *Type) isForeignKey(column string) bool {
	_, ok := t.fkTypes[column]
	return ok
}

func (t *Type) hasColumn(column string) bool {
	for _, col := range t.columns {
		if col == column {
			return true
		}
	}
	return false
}

func (t *Type) database(db []*DB) *DB {
	if len(db) > 0 && db[0] != nil {
		return db[0]
	}
	return t.registry.DB()
}

// New creates a transient entity of the type, owned by the provided
// connection or the registry's default one. It is stored by Save.
func (t *Type) New(db ...*DB) *Entity {
	return newEntity(t, t.database(db))
}

// Get returns the entity with the provided id on the registry's default
// connection, fetching it if it is not in the identity map.
func (t *Type) Get(ctx context.Context, id int64) (*Entity, error) {
	return t.store.get(ctx, t, id, nil, t.registry.DB())
}

// GetOn is like Get, on the provided connection.
func (t *Type) GetOn(ctx context.Context, db *DB, id int64) (*Entity, error) {
	return t.store.get(ctx, t, id, nil, db)
}

// Materialize returns the entity for a row already read from the store. If
// the identity map has an entity with that id, it is returned and the row is
// ignored. A nil db means the default connection.
func (t *Type) Materialize(ctx context.Context, id int64, row Row, db *DB) (*Entity, error) {
	if db == nil {
		db = t.registry.DB()
	}
	return t.store.get(ctx, t, id, row, db)
}

// Lookup returns a statement selecting the type's rows, for further
// filtering. Lookups on a subtype with a discriminator column only return
// rows of that subtype.
func (t *Type) Lookup(db ...*DB) *SelectStmt {
	return t.store.lookup(t, t.database(db))
}

// Generate iterates over all entities of the type in pages of batchSize.
func (t *Type) Generate(ctx context.Context, batchSize int64, db ...*DB) *Generator {
	return t.Lookup(db...).Generate(ctx, batchSize)
}

// ClearCache empties the identity map of the type on the default
// connection.
func (t *Type) ClearCache() {
	t.registry.clearIdentity(t.root, t.registry.DB())
}

// ClearDatabaseCache empties the identity map of the type on the provided
// connection.
func (t *Type) ClearDatabaseCache(db *DB) {
	t.registry.clearIdentity(t.root, db)
}
