package sqlz

import (
	"context"
	"fmt"
)

// Prepare prepares the statement on its connection. The plan is kept and
// reused by later runs as long as the rendered SQL does not change.
func (stmt *SelectStmt) Prepare(ctx context.Context) (*Plan, error) {
	if stmt.replay {
		return nil, ErrCachedQuery
	}
	if stmt.err != nil {
		return nil, stmt.err
	}
	if stmt.db == nil {
		return nil, ErrNoDatabase
	}

	asSQL, _ := stmt.ToSQL(true)
	if stmt.plan != nil && stmt.plan.SQL == asSQL {
		return stmt.plan, nil
	}

	plan, err := stmt.db.PreparePlan(ctx, asSQL)
	if err != nil {
		return nil, err
	}
	stmt.plan = plan
	return plan, nil
}

// Run executes the statement and returns a cursor over its rows. If params
// are provided, they replace the collected bindings (limit and offset are
// still appended). Entities in params are bound by their id.
//
// A statement created by DB.Cached promotes its cache slot on the first run;
// a cache proxy executes the slot's plan with the bindings it collected.
func (stmt *SelectStmt) Run(ctx context.Context, params ...interface{}) (*Cursor, error) {
	if stmt.err != nil {
		return nil, stmt.err
	}

	var plan *Plan
	if stmt.replay {
		if plan = stmt.slot.plan; plan == nil {
			return nil, ErrCachedQuery
		}
	} else {
		var err error
		if plan, err = stmt.Prepare(ctx); err != nil {
			return nil, err
		}
		if stmt.slot != nil {
			stmt.slot.plan = plan
		}
	}

	return plan.Query(ctx, stmt.runBindings(params)...)
}

// Close releases the statement's prepared plan, unless it is held by a
// cache slot. Run keeps the plan prepared for further runs; the other
// execution methods release it when done.
func (stmt *SelectStmt) Close() error {
	plan := stmt.plan
	stmt.plan = nil
	if plan == nil || (stmt.slot != nil && stmt.slot.plan == plan) {
		return nil
	}
	return plan.Close()
}

// Execute runs the statement and returns all rows.
func (stmt *SelectStmt) Execute(ctx context.Context, params ...interface{}) ([]Row, error) {
	defer stmt.Close()

	cur, err := stmt.Run(ctx, params...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var rows []Row
	for cur.Next() {
		rows = append(rows, cur.Row())
	}
	return rows, cur.Err()
}

// Entities runs a statement scoped to an entity type and returns the
// entities for its rows, in row order. Rows go through the identity map, so
// entities already loaded on the connection are returned as they are.
func (stmt *SelectStmt) Entities(ctx context.Context, params ...interface{}) ([]*Entity, error) {
	if stmt.model == nil {
		return nil, ErrNoModel
	}
	defer stmt.Close()

	cur, err := stmt.Run(ctx, params...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var entities []*Entity
	for cur.Next() {
		e, err := stmt.materialize(ctx, cur.Row())
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, cur.Err()
}

func (stmt *SelectStmt) materialize(ctx context.Context, row Row) (*Entity, error) {
	id, ok := rowID(row)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingID, stmt.model.Name)
	}
	return stmt.model.Materialize(ctx, id, row, stmt.db)
}

// Unique limits the statement to one row and returns it, or ErrNotFound.
func (stmt *SelectStmt) Unique(ctx context.Context, params ...interface{}) (Row, error) {
	defer stmt.Close()

	cur, err := stmt.Limit(1).Run(ctx, params...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return cur.Row(), nil
}

// UniqueEntity limits a statement scoped to an entity type to one row and
// returns its entity, or ErrNotFound.
func (stmt *SelectStmt) UniqueEntity(ctx context.Context, params ...interface{}) (*Entity, error) {
	if stmt.model == nil {
		return nil, ErrNoModel
	}
	row, err := stmt.Unique(ctx, params...)
	if err != nil {
		return nil, err
	}
	return stmt.materialize(ctx, row)
}

// GetRow executes the SELECT statement and loads the first
// result into the provided variable (which may be a simple
// variable if only one column was selected, or a struct if
// multiple columns were selected).
func (stmt *SelectStmt) GetRow(ctx context.Context, into interface{}) error {
	defer stmt.Close()

	plan, err := stmt.Prepare(ctx)
	if err != nil {
		return err
	}
	return plan.Get(ctx, into, stmt.Bindings()...)
}

// GetAll executes the SELECT statement and loads all the
// results into the provided slice variable.
func (stmt *SelectStmt) GetAll(ctx context.Context, into interface{}) error {
	defer stmt.Close()

	plan, err := stmt.Prepare(ctx)
	if err != nil {
		return err
	}
	return plan.Select(ctx, into, stmt.Bindings()...)
}

// GetCount executes the SELECT statement disregarding limits,
// offsets, selected fields and ordering; and returns the
// total number of matching results. This is useful when
// paginating results.
func (stmt *SelectStmt) GetCount(ctx context.Context) (count int64, err error) {
	if stmt.replay {
		return 0, ErrCachedQuery
	}

	countStmt := *stmt
	countStmt.text[PositionFields] = "COUNT(*)"
	countStmt.bindings[PositionFields] = nil
	countStmt.text[PositionOrderBy] = ""
	countStmt.bindings[PositionOrderBy] = nil
	countStmt.limit = nil
	countStmt.offset = nil
	countStmt.slot = nil
	countStmt.plan = nil

	err = countStmt.GetRow(ctx, &count)
	return count, err
}
