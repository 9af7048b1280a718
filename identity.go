package sqlz

// generation maps ids to the live entities of one root type on one
// connection.
type generation map[int64]*Entity

// identityMap is the identity map of a root type on a connection. While a
// row-locking transaction runs on the connection, the generation filled
// outside of it is parked and reads go to a fresh one, which is thrown away
// when the transaction ends.
type identityMap struct {
	current generation
	parked  generation
}

func newIdentityMap() *identityMap {
	return &identityMap{current: make(generation)}
}

func (m *identityMap) get(id int64) (*Entity, bool) {
	e, ok := m.current[id]
	return e, ok
}

func (m *identityMap) put(e *Entity) {
	m.current[e.id] = e
}

func (m *identityMap) remove(id int64) {
	delete(m.current, id)
}

func (m *identityMap) clear() {
	m.current = make(generation)
}

func (m *identityMap) isolated() bool {
	return m.parked != nil
}

func (m *identityMap) isolate() {
	if m.parked != nil {
		return
	}
	m.parked = m.current
	m.current = make(generation)
}

func (m *identityMap) restore() {
	if m.parked == nil {
		return
	}
	m.current = m.parked
	m.parked = nil
}
