// Package catalog implements named tables over tablet chains: table
// creation, schema evolution, row insertion, and the small lookups
// (row counts, column ids and types) the compiler needs to resolve a
// SELECT against a table's current shape.
package catalog

import (
	"tabletdb.dev/tabletdb/pkg/dbfile"
	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/slotcache"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

// Catalog owns every named table in a database file, backed by a
// slot cache and the file's on-disk table directory.
type Catalog struct {
	cfg   tdconfig.Config
	db    *dbfile.Database
	cache *slotcache.Cache
}

// New builds a Catalog over an already-open database file and cache.
func New(cfg tdconfig.Config, db *dbfile.Database, cache *slotcache.Cache) *Catalog {
	return &Catalog{cfg: cfg, db: db, cache: cache}
}

// CreateTable registers a new, columnless table with the given
// primary-key type and allocates its first, empty tablet.
func (c *Catalog) CreateTable(name string, keyType tablet.Type) (int, error) {
	tableID, err := c.db.AllocTableSlot(name)
	if err != nil {
		return 0, err
	}

	tabletID := c.db.NextTabletID()
	t := tablet.Create(c.cfg, tabletID, keyType, tableID, true)
	if err := c.cache.Alloc(tabletID, t); err != nil {
		return 0, err
	}
	if err := c.cache.Unlock(tabletID); err != nil {
		return 0, err
	}

	if err := c.db.SetTable(tableID, dbfile.TableInfo{
		Name:        name,
		Status:      1,
		FirstTablet: tabletID,
		LastTablet:  tabletID,
		WriteCursor: tabletID,
		TabletCount: 1,
	}); err != nil {
		return 0, err
	}
	return tableID, nil
}

// AddColumn appends a fixed-width column to every tablet of tableID's
// chain.
func (c *Catalog) AddColumn(tableID int, name string, typ tablet.Type) error {
	info, err := c.db.Table(tableID)
	if err != nil {
		return err
	}

	id := info.FirstTablet
	t, err := c.cache.Load(id)
	if err != nil {
		return err
	}
	for {
		if err := t.AddColumn(c.cfg, name, typ); err != nil {
			c.cache.Unlock(id)
			return err
		}
		if t.LastTablet {
			return c.cache.Unlock(id)
		}
		next := t.Next
		t, err = c.cache.LoadNext(id, next)
		if err != nil {
			return err
		}
		id = next
	}
}

// addTail appends a fresh tail tablet to a table's chain, copying the
// head tablet's column layout and sizing the new tablet for
// possibleRows rows. The returned tablet is pinned.
func (c *Catalog) addTail(head *tablet.Tablet, possibleRows int) (*tablet.Tablet, error) {
	tabletID := c.db.NextTabletID()
	tail := tablet.Tail(c.cfg, head, tabletID, possibleRows)

	if err := c.cache.Alloc(tabletID, tail); err != nil {
		return nil, err
	}

	head.LastTablet = false
	head.Next = tabletID

	return tail, nil
}

// NewResultTablet allocates a fresh, tableless tablet to hold query
// output, pinned in the cache. It starts with no columns; the caller
// (pkg/exec, via ResultColumn ops) adds them before any row is
// written. Int is used as the tablet's key type, a harmless
// placeholder since result tablets carry no primary key and are never
// looked up by one.
func (c *Catalog) NewResultTablet() (*tablet.Tablet, error) {
	id := c.db.NextTabletID()
	t := tablet.Create(c.cfg, id, tablet.Int, 0, false)
	if err := c.cache.Alloc(id, t); err != nil {
		return nil, err
	}
	return t, nil
}

// NewResultTail rolls a result tablet chain over to a fresh tail,
// copying head's column layout and key type and sizing the tail for
// possibleRows rows, the way a freshly duplicated result tablet would
// be. The returned tablet is pinned; head is left with Next pointing
// at it and LastTablet cleared.
func (c *Catalog) NewResultTail(head *tablet.Tablet, possibleRows int) (*tablet.Tablet, error) {
	return c.addTail(head, possibleRows)
}

// Insert appends one row to tableID's write cursor, spilling onto a
// freshly allocated tail tablet when the current one is full. key
// must be exactly the key type's width; data must hold every fixed
// column's bytes back to back, in column-declaration order.
func (c *Catalog) Insert(tableID int, key []byte, data []byte) error {
	info, err := c.db.Table(tableID)
	if err != nil {
		return err
	}

	t, err := c.cache.Load(info.WriteCursor)
	if err != nil {
		return err
	}

	if t.Rows == t.PossibleRows {
		residual, err := t.AddRows(c.cfg, c.cfg.KeyIncrement)
		if err != nil {
			c.cache.Unlock(t.ID)
			return err
		}
		if residual > 0 {
			tail, err := c.addTail(t, c.cfg.InitialKeys)
			if err != nil {
				c.cache.Unlock(t.ID)
				return err
			}
			oldID := t.ID
			if err := c.cache.Unlock(oldID); err != nil {
				return err
			}
			info.LastTablet = tail.ID
			info.WriteCursor = tail.ID
			info.TabletCount++
			if err := c.db.SetTable(tableID, info); err != nil {
				c.cache.Unlock(tail.ID)
				return err
			}
			t = tail
		}
	}

	t.SetKeyBytes(t.Rows, key)
	off := 0
	for i := 0; i < t.FixedColumns; i++ {
		stride := t.FixedStride[i]
		t.SetColumnBytes(i, t.Rows, data[off:off+stride])
		off += stride
	}
	t.Rows++

	return c.cache.Unlock(t.ID)
}

// NumRows sums the row count across every tablet in tableID's chain.
func (c *Catalog) NumRows(tableID int) (int, error) {
	info, err := c.db.Table(tableID)
	if err != nil {
		return 0, err
	}

	total := 0
	id := info.FirstTablet
	t, err := c.cache.Load(id)
	if err != nil {
		return 0, err
	}
	for {
		total += t.Rows
		if t.LastTablet {
			return total, c.cache.Unlock(id)
		}
		next := t.Next
		t, err = c.cache.LoadNext(id, next)
		if err != nil {
			return 0, err
		}
		id = next
	}
}

// GetID resolves a table name to its catalog id.
func (c *Catalog) GetID(name string) (int, error) {
	return c.db.TableIDByName(name)
}

// GetColumn resolves a column name within tableID to its index.
func (c *Catalog) GetColumn(tableID int, name string) (int, error) {
	info, err := c.db.Table(tableID)
	if err != nil {
		return 0, err
	}
	t, err := c.cache.Load(info.FirstTablet)
	if err != nil {
		return 0, err
	}
	defer c.cache.Unlock(info.FirstTablet)

	for i, n := range t.FixedName {
		if n == name {
			return i, nil
		}
	}
	return 0, engineerr.ErrNotFound
}

// GetColumnType returns the data type of column colID within tableID.
func (c *Catalog) GetColumnType(tableID, colID int) (tablet.Type, error) {
	info, err := c.db.Table(tableID)
	if err != nil {
		return 0, err
	}
	t, err := c.cache.Load(info.FirstTablet)
	if err != nil {
		return 0, err
	}
	defer c.cache.Unlock(info.FirstTablet)

	if colID < 0 || colID >= t.FixedColumns {
		return 0, engineerr.New(engineerr.InvalidArgument, "catalog.GetColumnType", nil)
	}
	return t.FixedType[colID], nil
}

// GetKeyType returns tableID's primary-key type.
func (c *Catalog) GetKeyType(tableID int) (tablet.Type, error) {
	info, err := c.db.Table(tableID)
	if err != nil {
		return 0, err
	}
	t, err := c.cache.Load(info.FirstTablet)
	if err != nil {
		return 0, err
	}
	defer c.cache.Unlock(info.FirstTablet)
	return t.KeyType, nil
}

// FirstTablet returns the id of tableID's head tablet, the entry
// point the compiler and interpreter need to walk a table's chain.
func (c *Catalog) FirstTablet(tableID int) (int, error) {
	info, err := c.db.Table(tableID)
	if err != nil {
		return 0, err
	}
	return info.FirstTablet, nil
}
