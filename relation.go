package sqlz

import (
	"context"
	"fmt"
	"strings"
)

// Related is an entity fetched through a relation table, with the extra
// relation columns that were requested.
type Related struct {
	Entity *Entity
	Fields Row
}

// RelationPair is a row of a relation table: the two related entities and
// the remaining columns.
type RelationPair struct {
	Left   *Entity
	Right  *Entity
	Fields Row
}

// relationSides resolves the columns holding the ids of two entities in a
// relation table.
type relationSides struct {
	table       string
	mine        string
	theirs      string
	homogeneous bool
}

func (e *Entity) relationTo(table string, other *Entity) (relationSides, error) {
	if other == nil {
		return relationSides{}, fmt.Errorf("%w: relation %s with a nil entity", ErrInvalidArguments, table)
	}
	if e.db.ID() != other.db.ID() {
		return relationSides{}, ErrDifferentDatabases
	}

	rel, err := e.typ.Relation(table)
	if err != nil {
		return relationSides{}, err
	}
	if rel.Homogeneous() && other.typ.root == e.typ.root {
		return relationSides{table: table, mine: rel.Columns[0], theirs: rel.Columns[1], homogeneous: true}, nil
	}

	otherRel, err := other.typ.Relation(table)
	if err != nil {
		return relationSides{}, err
	}
	return relationSides{table: table, mine: rel.Columns[0], theirs: otherRel.Columns[0]}, nil
}

// pairCondition matches the row relating two ids, in both orderings for
// relations of a type with itself unless oneWay is set.
func (s relationSides) pairCondition(id, otherID int64, oneWay bool) WhereCondition {
	if s.homogeneous && !oneWay {
		return Or(
			And(Eq(s.mine, id), Eq(s.theirs, otherID)),
			And(Eq(s.mine, otherID), Eq(s.theirs, id)),
		)
	}
	return And(Eq(s.mine, id), Eq(s.theirs, otherID))
}

func (s relationSides) key(op string, e, other *Entity) planKey {
	return planKey{op: op, name: e.typ.root.Name, extra: s.table + "/" + other.typ.root.Name}
}

// AddRelation inserts a row relating the entity with other into a relation
// table, along with extra column values.
func (e *Entity) AddRelation(ctx context.Context, table string, other *Entity, fields map[string]interface{}) error {
	sides, err := e.relationTo(table, other)
	if err != nil {
		return err
	}

	_, err = e.db.InsertInto(table).
		Columns(sides.mine, sides.theirs).
		Values(e.id, other.id).
		ValueMap(fields).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add relation %s: %w", table, err)
	}
	return nil
}

// DeleteRelation deletes the rows relating the entity with other, and
// reports whether there were any.
func (e *Entity) DeleteRelation(ctx context.Context, table string, other *Entity) (bool, error) {
	sides, err := e.relationTo(table, other)
	if err != nil {
		return false, err
	}
	return e.execRelation(ctx, sides.key(opDeleteRelation, e, other),
		e.db.DeleteFrom(table).Where(sides.pairCondition(e.id, other.id, false)))
}

// DeleteOneWayRelation deletes the row in which the entity is on the first
// side and other on the second side of a relation of a type with itself.
func (e *Entity) DeleteOneWayRelation(ctx context.Context, table string, other *Entity) (bool, error) {
	sides, err := e.relationTo(table, other)
	if err != nil {
		return false, err
	}
	if !sides.homogeneous {
		return false, fmt.Errorf("%w: %s does not relate %s with itself", ErrInvalidArguments, table, e.typ.Name)
	}
	return e.execRelation(ctx, sides.key(opDeleteOneWayRelation, e, other),
		e.db.DeleteFrom(table).Where(sides.pairCondition(e.id, other.id, true)))
}

// DeleteAllRelations deletes every row of a relation table referencing the
// entity, on either side for relations of a type with itself.
func (e *Entity) DeleteAllRelations(ctx context.Context, table string) error {
	rel, err := e.typ.Relation(table)
	if err != nil {
		return err
	}

	stmt := e.db.DeleteFrom(table)
	if rel.Homogeneous() {
		stmt.Where(Or(Eq(rel.Columns[0], e.id), Eq(rel.Columns[1], e.id)))
	} else {
		stmt.Where(Eq(rel.Columns[0], e.id))
	}

	_, err = e.execRelation(ctx, planKey{op: opDeleteAllRelations, name: e.typ.root.Name, extra: table}, stmt)
	return err
}

func (e *Entity) execRelation(ctx context.Context, key planKey, stmt SQLStmt) (bool, error) {
	asSQL, bindings := stmt.ToSQL(false)

	plan, err := e.typ.registry.plan(ctx, e.db, key, func() (string, error) {
		return asSQL, nil
	})
	if err != nil {
		return false, err
	}

	res, err := plan.Exec(ctx, bindings...)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", key.op, key.extra, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, e.db.handleError(err)
	}
	return n > 0, nil
}

// HasRelation reports whether the entity is related with other.
func (e *Entity) HasRelation(ctx context.Context, table string, other *Entity) (bool, error) {
	sides, err := e.relationTo(table, other)
	if err != nil {
		return false, err
	}
	return e.queryRelation(ctx, sides.key(opHasRelation, e, other), sides, other, false)
}

// HasOneWayRelation reports whether the entity is on the first side and
// other on the second side of a relation of a type with itself.
func (e *Entity) HasOneWayRelation(ctx context.Context, table string, other *Entity) (bool, error) {
	sides, err := e.relationTo(table, other)
	if err != nil {
		return false, err
	}
	if !sides.homogeneous {
		return false, fmt.Errorf("%w: %s does not relate %s with itself", ErrInvalidArguments, table, e.typ.Name)
	}
	return e.queryRelation(ctx, sides.key(opHasOneWayRelation, e, other), sides, other, true)
}

func (e *Entity) queryRelation(ctx context.Context, key planKey, sides relationSides, other *Entity, oneWay bool) (bool, error) {
	stmt := e.db.Select().ForUpdate(false).Raw("1", PositionFields).From(sides.table)
	if sides.homogeneous && !oneWay {
		stmt.Where().
			Clause(sides.mine, e.id).AddAnd(sides.theirs, other.id).EndClause().
			AddOr().
			Clause(sides.mine, other.id).AddAnd(sides.theirs, e.id).EndClause()
	} else {
		stmt.Where(sides.mine, e.id).AddAnd(sides.theirs, other.id)
	}

	asSQL, err := stmt.Build()
	if err != nil {
		return false, err
	}

	plan, err := e.typ.registry.plan(ctx, e.db, key, func() (string, error) {
		return asSQL, nil
	})
	if err != nil {
		return false, err
	}

	cur, err := plan.Query(ctx, stmt.Bindings()...)
	if err != nil {
		return false, err
	}
	defer cur.Close()

	found := cur.Next()
	return found, cur.Err()
}

// GetByRelation returns the entities of the type related with other. For
// relations of a type with itself, both orderings are matched; entities
// matched more than once are returned once. Extra columns of the relation
// table are returned in Related.Fields.
func (t *Type) GetByRelation(ctx context.Context, table string, other *Entity, extraFields ...string) ([]Related, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: relation %s with a nil entity", ErrInvalidArguments, table)
	}

	rel, err := t.Relation(table)
	if err != nil {
		return nil, err
	}

	if rel.Homogeneous() && other.typ.root == t.root {
		return t.getBySelfRelation(ctx, rel, other, extraFields)
	}

	otherRel, err := other.typ.Relation(table)
	if err != nil {
		return nil, err
	}

	db := other.db
	stmt := db.Select(t.Table + ".*")
	for _, name := range extraFields {
		stmt.Field(table+"."+name, "__A"+name)
	}
	stmt.From(table).
		Join(t.Table, DefaultJoin).On(t.Table+".id", FieldRef(table+"."+rel.Columns[0])).
		Where(table+"."+otherRel.Columns[0], other)

	rows, err := stmt.Execute(ctx)
	if err != nil {
		return nil, err
	}

	var (
		related []Related
		seen    = make(map[int64]bool)
	)
	for _, row := range rows {
		fields := make(Row, len(extraFields))
		for _, name := range extraFields {
			fields[name] = row["__A"+name]
			delete(row, "__A"+name)
		}

		id, ok := rowID(row)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingID, t.Name)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		e, err := t.Materialize(ctx, id, row, db)
		if err != nil {
			return nil, err
		}
		related = append(related, Related{Entity: e, Fields: fields})
	}
	return related, nil
}

func (t *Type) getBySelfRelation(ctx context.Context, rel Relation, other *Entity, extraFields []string) ([]Related, error) {
	first, second := rel.Columns[0], rel.Columns[1]

	stmt := other.db.Select(append([]string{first, second}, extraFields...)...).
		From(rel.Table).
		Where(second, other).
		AddOr(first, other)

	rows, err := stmt.Execute(ctx)
	if err != nil {
		return nil, err
	}

	var (
		related []Related
		seen    = make(map[int64]bool)
	)
	for _, row := range rows {
		a, _ := toInt64(row[first])
		b, _ := toInt64(row[second])
		peer := a
		if a == other.id {
			peer = b
		}
		if seen[peer] {
			continue
		}
		seen[peer] = true

		e, err := t.GetOn(ctx, other.db, peer)
		if err != nil {
			return nil, err
		}

		fields := make(Row, len(extraFields))
		for _, name := range extraFields {
			fields[name] = row[name]
		}
		related = append(related, Related{Entity: e, Fields: fields})
	}
	return related, nil
}

// GetAllRelations returns every row of a relation table. The left entity
// is of type t; the right one is of type t too for relations of a type
// with itself, or of the other registered type taking part in the
// relation.
func (t *Type) GetAllRelations(ctx context.Context, table string, db ...*DB) ([]RelationPair, error) {
	rel, err := t.Relation(table)
	if err != nil {
		return nil, err
	}
	conn := t.database(db)

	peer, peerColumn := t, ""
	if rel.Homogeneous() {
		peerColumn = rel.Columns[1]
	} else {
		peer, peerColumn, err = t.relationPeer(table)
		if err != nil {
			return nil, err
		}
	}

	rows, err := conn.Select().From(table).Execute(ctx)
	if err != nil {
		return nil, err
	}

	pairs := make([]RelationPair, 0, len(rows))
	for _, row := range rows {
		pair := RelationPair{Fields: make(Row)}
		for name, value := range row {
			switch name {
			case rel.Columns[0]:
				id, _ := toInt64(value)
				if pair.Left, err = t.GetOn(ctx, conn, id); err != nil {
					return nil, err
				}
			case peerColumn:
				id, _ := toInt64(value)
				if pair.Right, err = peer.GetOn(ctx, conn, id); err != nil {
					return nil, err
				}
			default:
				pair.Fields[name] = value
			}
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// relationPeer finds the other type of a relation table linking two types.
func (t *Type) relationPeer(table string) (*Type, string, error) {
	for _, candidate := range t.registry.Types() {
		if candidate.root == t.root || candidate.parent != nil {
			continue
		}
		if rel, ok := candidate.relations[table]; ok && !rel.Homogeneous() {
			return candidate, rel.Columns[0], nil
		}
	}
	return nil, "", fmt.Errorf("%w: no other type takes part in %s", ErrMissingRelation, table)
}

// HasRelation filters a statement scoped to an entity type on the
// existence of a row in a relation table. Without other, any related
// entity matches; for relations of a type with itself both columns are
// matched against the scoped entity.
func (stmt *SelectStmt) HasRelation(table string, other ...*Entity) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}
	if stmt.model == nil {
		return stmt.fail(ErrNoModel)
	}

	rel, err := stmt.model.Relation(table)
	if err != nil {
		return stmt.fail(err)
	}
	ref := FieldRef(stmt.modelAlias + ".id")
	stmt.openRelationFilter()

	if len(other) == 0 || other[0] == nil {
		sub := stmt.Exists().From(table).Where(rel.Columns[0], ref)
		if rel.Homogeneous() {
			sub.AddOr(rel.Columns[1], ref)
		}
		return sub.Back()
	}

	obj := other[0]
	if rel.Homogeneous() {
		return stmt.Exists().From(table).Where().
			Clause(rel.Columns[0], ref).AddAnd(rel.Columns[1], obj).EndClause().
			AddOr().
			Clause(rel.Columns[1], ref).AddAnd(rel.Columns[0], obj).EndClause().
			Back()
	}

	otherRel, err := obj.typ.Relation(table)
	if err != nil {
		return stmt.fail(err)
	}
	return stmt.Exists().From(table).Where(rel.Columns[0], ref).AddAnd(otherRel.Columns[0], obj).Back()
}

// openRelationFilter positions the statement in WHERE, ready for an EXISTS
// expression, joining it to a previous condition with AND.
func (stmt *SelectStmt) openRelationFilter() {
	if !stmt.open[PositionWhere] {
		stmt.Where()
		return
	}
	stmt.position = PositionWhere
	if !awaitsCondition(stmt.text[PositionWhere]) {
		stmt.AddAnd()
	}
}

// awaitsCondition reports whether a condition clause ends with a keyword or
// connector, so that the next expression needs no connector of its own.
func awaitsCondition(clause string) bool {
	clause = strings.TrimRight(clause, " ")
	if clause == "" || strings.HasSuffix(clause, "(") {
		return true
	}
	for _, keyword := range []string{"WHERE", "AND", "OR", "NOT"} {
		if strings.HasSuffix(clause, " "+keyword) {
			return true
		}
	}
	return false
}
