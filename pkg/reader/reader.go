// Package reader implements a cursor that walks a query's result
// tablet chain row by row, the consumer-facing counterpart to
// pkg/exec's row-block interpreter.
package reader

import (
	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/slotcache"
	"tabletdb.dev/tabletdb/pkg/tablet"
)

// Row is one decoded result row: the raw bytes of each column, in the
// same order as Reader.Schema.
type Row struct {
	Columns [][]byte
}

// Reader walks a result tablet chain row by row, holding a pin on
// whichever tablet it is currently positioned in.
type Reader struct {
	cache  *slotcache.Cache
	res    *tablet.Tablet
	row    int
	schema []opcode.ResultColumnType
}

// Init pins the first tablet of vctx's result chain and positions a
// reader at its first row. vctx must come from a program run that
// produced at least one result tablet.
func Init(cache *slotcache.Cache, vctx *opcode.Context) (*Reader, error) {
	if vctx.HeadResult == nil {
		return nil, engineerr.New(engineerr.InvalidArgument, "reader.Init", nil)
	}
	res, err := cache.Load(vctx.HeadResult.ID)
	if err != nil {
		return nil, err
	}
	return &Reader{
		cache:  cache,
		res:    res,
		schema: opcode.ResultSchema(vctx.Program),
	}, nil
}

// Schema returns the result's column layout, name paired with type,
// in declaration order.
func (r *Reader) Schema() []opcode.ResultColumnType { return r.schema }

// Row copies the bytes of the current row's columns and advances the
// cursor, releasing the current tablet and loading the next one in
// the chain when it runs out of rows. It returns a nil Row once every
// row has been read.
func (r *Reader) Row() (*Row, error) {
	if r.res == nil || r.row >= r.res.Rows {
		return nil, nil
	}

	row := &Row{Columns: make([][]byte, r.res.FixedColumns)}
	for i := 0; i < r.res.FixedColumns; i++ {
		row.Columns[i] = append([]byte(nil), r.res.ColumnBytes(i, r.row)...)
	}

	r.row++
	if r.row >= r.res.Rows {
		if err := r.advance(); err != nil {
			return nil, err
		}
	}

	return row, nil
}

// advance unlocks the current tablet once it is exhausted and moves
// onto its successor, or clears the cursor if it was the last one.
func (r *Reader) advance() error {
	id, last, next := r.res.ID, r.res.LastTablet, r.res.Next
	if last {
		r.res = nil
		return r.cache.Unlock(id)
	}
	t, err := r.cache.LoadNext(id, next)
	if err != nil {
		return err
	}
	r.res = t
	r.row = 0
	return nil
}

// CountRemaining returns the number of rows left to read without
// advancing the cursor, walking the rest of the chain to total them.
func (r *Reader) CountRemaining() (int, error) {
	if r.res == nil {
		return 0, nil
	}

	total := r.res.Rows
	last, next := r.res.LastTablet, r.res.Next

	for !last {
		t, err := r.cache.Load(next)
		if err != nil {
			return 0, err
		}
		total += t.Rows
		last, next = t.LastTablet, t.Next
		if err := r.cache.Unlock(t.ID); err != nil {
			return 0, err
		}
	}

	return total - r.row, nil
}

// NextTablet skips the remainder of the current tablet and moves the
// reader onto the next one in the chain, resetting its row cursor. It
// errors if the current tablet is the chain's last.
func (r *Reader) NextTablet() error {
	if r.res == nil {
		return engineerr.New(engineerr.InvalidArgument, "reader.NextTablet", nil)
	}
	if r.res.LastTablet {
		return engineerr.New(engineerr.InvalidArgument, "reader.NextTablet", nil)
	}
	return r.advance()
}

// Free releases the reader's pin on its current tablet, if any. It
// does not remove the result tablets from the cache or disk index;
// callers that are done with a query's results entirely should do
// that separately once every reader on it has been freed.
func (r *Reader) Free() error {
	if r.res == nil {
		return nil
	}
	id := r.res.ID
	r.res = nil
	return r.cache.Unlock(id)
}
