package sqlz

import "context"

// recursionMarker replaces an entity that is already being dumped further
// up the foreign key path.
const recursionMarker = "*RECURSION*"

type dumpKey struct {
	root string
	id   int64
}

// Dump describes the entity for debugging: its id, type name and column
// values, with foreign keys resolved and dumped recursively. An entity met
// again on its own foreign key path is replaced with "*RECURSION*".
func (e *Entity) Dump(ctx context.Context) (map[string]interface{}, error) {
	return e.dump(ctx, make(map[dumpKey]bool))
}

func (e *Entity) dump(ctx context.Context, visited map[dumpKey]bool) (map[string]interface{}, error) {
	self := dumpKey{root: e.typ.root.Name, id: e.id}
	visited[self] = true
	defer delete(visited, self)

	out := make(map[string]interface{}, len(e.values)+len(e.typ.foreignKeys)+2)
	out["id"] = e.id
	out["_type"] = e.typ.Name
	for name, value := range e.values {
		out[name] = value
	}

	for _, fk := range e.typ.foreignKeys {
		ref, err := e.Ref(ctx, fk.Column)
		if err != nil {
			return nil, err
		}

		switch {
		case ref == nil:
			out[fk.Column] = nil
		case visited[dumpKey{root: ref.typ.root.Name, id: ref.id}]:
			out[fk.Column] = recursionMarker
		default:
			sub, err := ref.dump(ctx, visited)
			if err != nil {
				return nil, err
			}
			out[fk.Column] = sub
		}
	}

	return out, nil
}
