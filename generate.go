package sqlz

import "context"

// Generator iterates over the results of a statement page by page, reissuing
// it with a moving LIMIT/OFFSET window. Use it like sql.Rows:
//
//	gen := db.Select().From("foo").Generate(ctx, 100)
//	defer gen.Close()
//	for gen.Next() {
//		row := gen.Row()
//	}
//	if err := gen.Err(); err != nil { ... }
//
// A limit set on the statement caps the total number of rows. Paging stops
// at the first page that returns fewer rows than requested. The statement's
// limit and offset are restored when iteration ends.
type Generator struct {
	stmt       *SelectStmt
	ctx        context.Context
	params     []interface{}
	batch      int64
	origLimit  *int64
	origOffset *int64
	offset     int64
	processed  int64
	pageRows   int64
	cur        *Cursor
	row        Row
	entity     *Entity
	done       bool
	err        error
}

// Generate returns a Generator fetching batchSize rows per page. A
// non-positive batch size uses the connection's configured default.
func (stmt *SelectStmt) Generate(ctx context.Context, batchSize int64, params ...interface{}) *Generator {
	if batchSize <= 0 {
		batchSize = int64(DefaultConfig().GenerateBatchSize)
		if stmt.db != nil {
			batchSize = int64(stmt.db.cfg.GenerateBatchSize)
		}
	}

	g := &Generator{
		stmt:       stmt,
		ctx:        ctx,
		params:     params,
		batch:      batchSize,
		origLimit:  stmt.limit,
		origOffset: stmt.offset,
	}
	if stmt.offset != nil {
		g.offset = *stmt.offset
	}
	return g
}

// Next advances to the next row, fetching the next page when needed.
func (g *Generator) Next() bool {
	if g.done {
		return false
	}

	for {
		if g.cur == nil && !g.nextPage() {
			g.finish()
			return false
		}

		if g.cur.Next() {
			g.pageRows++
			g.row = g.cur.Row()
			if g.stmt.model != nil {
				if g.entity, g.err = g.stmt.materialize(g.ctx, g.row); g.err != nil {
					g.finish()
					return false
				}
			}
			return true
		}

		if err := g.cur.Err(); err != nil {
			g.err = err
			g.finish()
			return false
		}
		g.cur = nil

		g.offset += g.batch
		g.processed += g.batch
		if g.pageRows < g.batch || (g.origLimit != nil && *g.origLimit-g.processed <= 0) {
			g.finish()
			return false
		}
	}
}

func (g *Generator) nextPage() bool {
	if g.origLimit != nil && *g.origLimit-g.processed < g.batch {
		g.batch = *g.origLimit - g.processed
	}

	g.stmt.Limit(g.batch).Offset(g.offset)
	g.pageRows = 0

	cur, err := g.stmt.Run(g.ctx, g.params...)
	if err != nil {
		g.err = err
		return false
	}
	g.cur = cur
	return true
}

func (g *Generator) finish() {
	g.done = true
	if g.cur != nil {
		g.cur.Close()
		g.cur = nil
	}
	g.stmt.limit = g.origLimit
	g.stmt.offset = g.origOffset
	g.stmt.Close()
}

// Row returns the current row.
func (g *Generator) Row() Row {
	return g.row
}

// Entity returns the entity of the current row, for statements scoped to an
// entity type.
func (g *Generator) Entity() *Entity {
	return g.entity
}

// Err returns the error that stopped iteration, if any.
func (g *Generator) Err() error {
	return g.err
}

// Close stops iteration early and restores the statement.
func (g *Generator) Close() error {
	if !g.done {
		g.finish()
	}
	return nil
}
