package sqlz

import (
	"context"
	"fmt"
	"sync"
)

type mapKey struct {
	root string
	db   string
}

// planKey identifies a prepared entity statement. Plans are bound to the
// connection they were prepared on.
type planKey struct {
	op    string
	name  string
	extra string
	db    string
}

const (
	opSelect               = "select"
	opSelectLocked         = "select-locked"
	opInsert               = "insert"
	opUpdate               = "update"
	opDelete               = "delete"
	opHasRelation          = "has-relation"
	opHasOneWayRelation    = "has-one-way-relation"
	opDeleteRelation       = "delete-relation"
	opDeleteOneWayRelation = "delete-one-way-relation"
	opDeleteAllRelations   = "delete-all-relations"
	opGetByRelation        = "get-by-relation"
	opAllRelations         = "all-relations"
)

// Registry holds the entity types of an application together with their
// per-connection identity maps and prepared statements. Entities fetched
// without an explicit connection live on the registry's default connection.
//
// The registry is safe for concurrent use by goroutines working on distinct
// connections.
type Registry struct {
	mu        sync.Mutex
	db        *DB
	types     map[string]*Type
	order     []*Type
	databases map[string]*DB
	isolated  map[string]bool
	maps      map[mapKey]*identityMap
	plans     map[planKey]*Plan
}

// NewRegistry creates a registry whose default connection is db.
func NewRegistry(db *DB) *Registry {
	r := &Registry{
		db:        db,
		types:     make(map[string]*Type),
		databases: make(map[string]*DB),
		isolated:  make(map[string]bool),
		maps:      make(map[mapKey]*identityMap),
		plans:     make(map[planKey]*Plan),
	}
	r.RegisterDatabase(db)
	return r
}

// DB returns the default connection.
func (r *Registry) DB() *DB {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db
}

// Register adds an entity type. Parent types must be registered before
// their subtypes.
func (r *Registry) Register(def TypeDef) (*Type, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: entity type without a name", ErrInvalidArguments)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[def.Name]; exists {
		return nil, fmt.Errorf("%w: type %s registered twice", ErrInvalidArguments, def.Name)
	}

	t := &Type{
		Name:      def.Name,
		Table:     def.Table,
		registry:  r,
		fkTypes:   make(map[string]string),
		relations: make(map[string]Relation),
	}

	if def.Parent != "" {
		parent, ok := r.types[def.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s (parent of %s)", ErrUnknownType, def.Parent, def.Name)
		}
		if def.Table != "" && def.Table != parent.Table {
			return nil, fmt.Errorf("%w: subtype %s must use the table of %s", ErrInvalidArguments, def.Name, parent.Name)
		}
		if def.Polymorphic || def.Discriminator != "" || def.Resolve != nil {
			return nil, fmt.Errorf("%w: only root types resolve subtypes", ErrInvalidArguments)
		}

		t.parent = parent
		t.root = parent.root
		t.Table = parent.Table
		t.store = parent.store
		t.columns = append(t.columns, parent.columns...)
		t.foreignKeys = append(t.foreignKeys, parent.foreignKeys...)
		for col, name := range parent.fkTypes {
			t.fkTypes[col] = name
		}
		for table, rel := range parent.relations {
			t.relations[table] = rel
		}
	} else {
		if def.Table == "" {
			return nil, fmt.Errorf("%w: type %s has no table", ErrInvalidArguments, def.Name)
		}
		t.root = t
	}

	for _, col := range def.Columns {
		if col != "id" && !t.hasColumn(col) {
			t.columns = append(t.columns, col)
		}
	}

	for _, fk := range def.ForeignKeys {
		if fk.Column == "" || fk.Type == "" {
			return nil, fmt.Errorf("%w: incomplete foreign key on %s", ErrInvalidArguments, def.Name)
		}
		if t.isForeignKey(fk.Column) {
			continue
		}
		t.foreignKeys = append(t.foreignKeys, fk)
		t.fkTypes[fk.Column] = fk.Type
	}

	for table, cols := range def.Relations {
		if len(cols) != 1 && len(cols) != 2 {
			return nil, fmt.Errorf("%w: relation %s on %s needs one or two columns", ErrInvalidArguments, table, def.Name)
		}
		t.relations[table] = Relation{Table: table, Columns: append([]string(nil), cols...)}
	}

	if t.parent == nil {
		base := &baseStore{reg: r}
		if def.Polymorphic || def.Discriminator != "" || def.Resolve != nil {
			column := def.Discriminator
			if column == "" && def.Resolve == nil {
				column = r.db.cfg.DiscriminatorColumn
			}
			if column != "" && !t.hasColumn(column) {
				t.columns = append(t.columns, column)
			}
			t.store = &inheritanceStore{baseStore: base, column: column, resolve: def.Resolve}
		} else {
			t.store = base
		}
	}

	r.types[t.Name] = t
	r.order = append(r.order, t)
	r.db.logger().Debug("registered entity type", "type", t.Name, "table", t.Table)

	return t, nil
}

// RegisterSchema registers all types of a schema, in order.
func (r *Registry) RegisterSchema(schema *Schema) error {
	for _, def := range schema.Types {
		if _, err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Type returns a registered type by name.
func (r *Registry) Type(name string) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Types returns all registered types in registration order.
func (r *Registry) Types() []*Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Type(nil), r.order...)
}

// RegisterDatabase makes the registry aware of a connection, so that
// row-locking transactions on it isolate its identity maps. Connections are
// also registered the first time an entity is loaded on them.
func (r *Registry) RegisterDatabase(db *DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watch(db)
}

// watch hooks the registry into the transactions of db. The caller must
// hold r.mu.
func (r *Registry) watch(db *DB) {
	if _, ok := r.databases[db.ID()]; ok {
		return
	}
	r.databases[db.ID()] = db
	db.AddTxHook(r)
}

// SwitchDatabase makes db the default connection. The select-by-id
// statements of every type are prepared on it, and the other statements
// prepared on the previous default connection are closed.
func (r *Registry) SwitchDatabase(ctx context.Context, db *DB) error {
	r.RegisterDatabase(db)

	r.mu.Lock()
	prev := r.db
	r.db = db
	for key, plan := range r.plans {
		if key.db == prev.ID() && key.op != opSelect && key.op != opSelectLocked {
			plan.Close()
			delete(r.plans, key)
		}
	}
	types := append([]*Type(nil), r.order...)
	r.mu.Unlock()

	db.logger().Debug("switched default database", "from", prev.ID(), "to", db.ID())

	for _, t := range types {
		if t.parent != nil {
			continue
		}
		for _, locked := range []bool{false, true} {
			if _, err := r.selectPlan(ctx, t, db, locked); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClearCaches empties the identity maps of all types on the default
// connection.
func (r *Registry) ClearCaches() {
	r.ClearDatabaseCaches(r.DB())
}

// ClearDatabaseCaches empties the identity maps of all types on the
// provided connection.
func (r *Registry) ClearDatabaseCaches(db *DB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, m := range r.maps {
		if key.db == db.ID() {
			m.clear()
		}
	}
}

// ClearAllCaches empties all identity maps.
func (r *Registry) ClearAllCaches() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.maps {
		m.clear()
	}
}

// TransactionStarted implements TxHook. Row-locking transactions get fresh
// identity maps.
func (r *Registry) TransactionStarted(db *DB, rowLocking bool) {
	if !rowLocking {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.isolated[db.ID()] = true
	for key, m := range r.maps {
		if key.db == db.ID() {
			m.isolate()
		}
	}
	db.logger().Debug("isolated identity maps", "db", db.ID())
}

// TransactionEnded implements TxHook. The identity maps filled by a
// row-locking transaction are dropped and the previous ones restored.
func (r *Registry) TransactionEnded(db *DB, rowLocking bool) {
	if !rowLocking {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.isolated, db.ID())
	for key, m := range r.maps {
		if key.db == db.ID() {
			m.restore()
		}
	}
	db.logger().Debug("restored identity maps", "db", db.ID())
}

// identity returns the identity map of a root type on a connection. The
// caller must hold r.mu.
func (r *Registry) identity(root *Type, db *DB) *identityMap {
	key := mapKey{root: root.Name, db: db.ID()}
	m, ok := r.maps[key]
	if !ok {
		r.watch(db)
		m = newIdentityMap()
		if r.isolated[db.ID()] {
			m.isolate()
		}
		r.maps[key] = m
	}
	return m
}

func (r *Registry) cached(t *Type, db *DB, id int64) (*Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity(t.root, db).get(id)
}

// remember registers an entity unless another one with the same id got
// there first, and returns the registered entity.
func (r *Registry) remember(e *Entity) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.identity(e.typ.root, e.db)
	if existing, ok := m.get(e.id); ok && existing != e {
		return existing
	}
	m.put(e)
	return e
}

func (r *Registry) forget(e *Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity(e.typ.root, e.db).remove(e.id)
}

func (r *Registry) clearIdentity(root *Type, db *DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity(root, db).clear()
}

// plan returns the prepared statement stored under key, preparing the SQL
// produced by render if there is none yet.
func (r *Registry) plan(ctx context.Context, db *DB, key planKey, render func() (string, error)) (*Plan, error) {
	key.db = db.ID()

	r.mu.Lock()
	plan, ok := r.plans[key]
	r.mu.Unlock()
	if ok {
		return plan, nil
	}

	asSQL, err := render()
	if err != nil {
		return nil, err
	}
	plan, err = db.PreparePlan(ctx, db.Rebind(asSQL))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.plans[key]; ok {
		plan.Close()
		return existing, nil
	}
	r.plans[key] = plan
	return plan, nil
}
