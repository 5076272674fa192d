package tablet

import (
	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

// HeaderSize is the fixed, 64-byte-aligned region reserved at the
// start of every tablet for its header. The key block always begins
// here, matching the original layout invariant that key_block equals
// the size of the meta struct.
const HeaderSize = 1024

// keyPointerStride is the width of the reserved key-pointer column.
// It is allocated and addressed but never written to: the blob
// pointer feature it reserved space for was never implemented in the
// system this engine is modeled on, and that is preserved here rather
// than repurposed.
const keyPointerStride = 8

// initialVariable is the variable-size tail region a freshly built
// data tablet reserves up front; data tablets need none of it, so it
// is zero, matching the layout Create and Tail both produce.
const initialVariable = 0

// Tablet is one fixed-size block of a tablet chain: a header of
// layout metadata plus a byte buffer holding the key column, the
// reserved key-pointer column, the fixed columns, and a variable-size
// tail area.
type Tablet struct {
	ID         int
	Next       int
	LastTablet bool
	InTable    bool
	TableID    int

	KeyType Type

	Rows         int
	PossibleRows int
	RowStride    int

	KeyBlock         int
	KeyPointersBlock int
	FixedBlock       int
	VariableBlock    int
	Size             int

	FixedColumns int
	FixedName    []string
	FixedType    []Type
	FixedStride  []int
	FixedOffset  []int

	// Checksum is the last-computed BLAKE2b-128 digest of
	// Data[HeaderSize:Size], the tablet's body (the header fields are
	// not covered), filled in by pkg/dbfile on write and verified on
	// load.
	Checksum [16]byte

	// Data is the tablet's full byte image, indexed by the absolute
	// offsets recorded above. Bytes [0, HeaderSize) are reserved and
	// unused; the header fields live as struct fields instead of
	// being packed into this buffer.
	Data []byte

	maxColumns int
}

func keyStride(t Type) int { return Sizeof(t) }

// SetMaxColumns restores the column-count ceiling on a Tablet decoded
// from disk, where the unexported field can't be populated directly.
// Callers that build a Tablet through Create never need it.
func (t *Tablet) SetMaxColumns(n int) { t.maxColumns = n }

// Create builds a brand new, empty tablet with no columns, ready to
// have columns added with AddColumn. tableID is ignored (and the
// tablet is marked as not belonging to a table) when inTable is
// false, matching how the original engine treats result tablets.
func Create(cfg tdconfig.Config, id int, keyType Type, tableID int, inTable bool) *Tablet {
	t := &Tablet{
		ID:           id,
		LastTablet:   true,
		InTable:      inTable,
		TableID:      tableID,
		KeyType:      keyType,
		PossibleRows: cfg.InitialKeys,
		maxColumns:   cfg.MaxColumns,
	}
	t.RowStride = keyStride(keyType) + keyPointerStride
	t.KeyBlock = HeaderSize
	t.KeyPointersBlock = t.KeyBlock + keyStride(keyType)*t.PossibleRows
	t.FixedBlock = t.KeyPointersBlock + keyPointerStride*t.PossibleRows
	t.VariableBlock = t.FixedBlock
	t.Size = t.VariableBlock
	t.Data = make([]byte, t.Size)
	return t
}

// Tail builds a fresh tail tablet for head's chain: it copies head's
// column layout but lays it out for possibleRows rows from scratch,
// the way adding a column to every tablet one at a time would, without
// actually replaying every AddColumn/AddRows call.
func Tail(cfg tdconfig.Config, head *Tablet, id int, possibleRows int) *Tablet {
	t := &Tablet{
		ID:           id,
		LastTablet:   true,
		InTable:      head.InTable,
		TableID:      head.TableID,
		KeyType:      head.KeyType,
		PossibleRows: possibleRows,
		FixedColumns: head.FixedColumns,
		FixedName:    append([]string(nil), head.FixedName...),
		FixedType:    append([]Type(nil), head.FixedType...),
		FixedStride:  append([]int(nil), head.FixedStride...),
		maxColumns:   cfg.MaxColumns,
	}

	ks := keyStride(head.KeyType)
	t.KeyBlock = HeaderSize
	t.KeyPointersBlock = t.KeyBlock + ks*possibleRows
	t.FixedBlock = t.KeyPointersBlock + keyPointerStride*possibleRows

	t.FixedOffset = make([]int, t.FixedColumns)
	for i := 1; i < t.FixedColumns; i++ {
		t.FixedOffset[i] = t.FixedOffset[i-1] + t.FixedStride[i-1]*possibleRows
	}

	t.RowStride = ks + keyPointerStride
	for _, s := range t.FixedStride {
		t.RowStride += s
	}

	t.VariableBlock = t.KeyBlock + t.RowStride*possibleRows
	t.Size = t.VariableBlock + initialVariable
	t.Data = make([]byte, t.Size)

	return t
}

// growFixed grows the fixed-column area by size bytes, moving the
// variable-size tail area back to make room. It leaves the tablet's
// row/column bookkeeping untouched; callers update possible_rows,
// column offsets, and so on themselves.
func (t *Tablet) growFixed(cfg tdconfig.Config, size int) error {
	if t.Size+size > cfg.TabletSize {
		return engineerr.New(engineerr.OutOfSpace, "tablet.growFixed", nil)
	}

	if t.Size == t.VariableBlock {
		t.VariableBlock += size
		t.Size += size
		t.grow(t.Size)
		return nil
	}

	newVariable := t.VariableBlock + size
	variableSize := t.Size - t.VariableBlock
	newSize := newVariable + variableSize
	t.grow(newSize)

	copy(t.Data[newVariable:newVariable+variableSize], t.Data[t.VariableBlock:t.VariableBlock+variableSize])

	t.VariableBlock = newVariable
	t.Size = newSize
	return nil
}

// grow ensures Data is at least n bytes long.
func (t *Tablet) grow(n int) {
	if len(t.Data) >= n {
		return
	}
	nd := make([]byte, n)
	copy(nd, t.Data)
	t.Data = nd
}

// AddColumn appends a new fixed-width column to the tablet.
func (t *Tablet) AddColumn(cfg tdconfig.Config, name string, typ Type) error {
	if t.FixedColumns == t.maxColumns {
		return engineerr.New(engineerr.InvalidArgument, "tablet.AddColumn", nil)
	}
	if len(name) >= cfg.MaxColumnName {
		return engineerr.New(engineerr.InvalidArgument, "tablet.AddColumn", nil)
	}

	col := t.FixedColumns
	stride := Sizeof(typ)

	t.FixedName = append(t.FixedName, name)
	t.FixedType = append(t.FixedType, typ)
	t.FixedStride = append(t.FixedStride, stride)

	var offset int
	if col != 0 {
		offset = t.FixedOffset[col-1] + t.FixedStride[col-1]*t.PossibleRows
	}
	t.FixedOffset = append(t.FixedOffset, offset)
	t.RowStride += stride
	t.FixedColumns++

	return t.growFixed(cfg, stride*t.PossibleRows)
}

// AddRows grows the tablet's row capacity by up to rows, rounded to a
// multiple of 16, as far as the tablet's remaining space allows. It
// returns how many of the requested rows could not be accommodated
// locally: the caller (pkg/catalog, which owns tablet-chain
// allocation) is responsible for spilling any residual onto a new
// tail tablet, since growing the chain itself requires allocating a
// fresh tablet id and slot, which this package has no access to.
func (t *Tablet) AddRows(cfg tdconfig.Config, rows int) (residual int, err error) {
	rowStride := t.RowStride

	maxNewRows := (cfg.TabletSize - t.Size) / rowStride
	maxNewRows &^= 0xF

	rounded := (rows - 1 + 16) &^ 0xF
	newRows := min(maxNewRows, rounded)

	if newRows > 0 {
		if err := t.growFixed(cfg, rowStride*newRows); err != nil {
			return rows, err
		}
		t.PossibleRows += newRows

		newOffsets := make([]int, t.FixedColumns)
		for i := 1; i < t.FixedColumns; i++ {
			newOffsets[i] = newOffsets[i-1] + t.FixedStride[i-1]*t.PossibleRows
		}

		newKeyPointersBlock := t.KeyBlock + keyStride(t.KeyType)*t.PossibleRows
		nfb := newKeyPointersBlock + keyPointerStride*t.PossibleRows

		for i := t.FixedColumns - 1; i >= 0; i-- {
			src := t.FixedBlock + t.FixedOffset[i]
			dst := nfb + newOffsets[i]
			n := t.Rows * t.FixedStride[i]
			copy(t.Data[dst:dst+n], t.Data[src:src+n])
		}
		t.FixedBlock = nfb
		t.FixedOffset = newOffsets

		copy(t.Data[newKeyPointersBlock:newKeyPointersBlock+t.Rows*keyPointerStride],
			t.Data[t.KeyPointersBlock:t.KeyPointersBlock+t.Rows*keyPointerStride])
		t.KeyPointersBlock = newKeyPointersBlock
	}

	if maxNewRows <= rounded {
		return rounded - newRows, nil
	}
	return 0, nil
}

// AddMaxRows grows a freshly column-configured tablet (typically a
// result tablet) to hold as many rows as will fit, leaving only the
// reserved variable-size margin untouched.
func (t *Tablet) AddMaxRows(cfg tdconfig.Config) error {
	avail := cfg.TabletSize - HeaderSize - (cfg.TabletSize / 16)
	if avail < 0 {
		return engineerr.New(engineerr.OutOfSpace, "tablet.AddMaxRows", nil)
	}
	pr := avail / t.RowStride
	if pr <= t.Rows {
		return nil
	}
	_, err := t.AddRows(cfg, pr-t.Rows)
	return err
}

// Check recomputes every layout invariant and reports every violation
// found, rather than stopping at the first, so that a caller
// exercising the property tests sees the full picture.
func (t *Tablet) Check() []error {
	var errs []error
	pr := t.PossibleRows
	ks := keyStride(t.KeyType)

	if t.KeyBlock != HeaderSize {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	if pr*ks+t.KeyBlock != t.KeyPointersBlock {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	if t.FixedBlock+pr*(t.RowStride-ks-keyPointerStride) != t.VariableBlock {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	if t.FixedColumns > 0 {
		if t.FixedOffset[0] != 0 {
			errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
		}
		for i := 1; i < t.FixedColumns; i++ {
			if t.FixedOffset[i] != t.FixedOffset[i-1]+pr*t.FixedStride[i-1] {
				errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
			}
		}
		last := t.FixedColumns - 1
		if t.FixedBlock+t.FixedOffset[last]+pr*t.FixedStride[last] != t.VariableBlock {
			errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
		}
	} else if t.FixedBlock != t.VariableBlock {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	if t.KeyBlock%64 != 0 {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	if t.PossibleRows%16 != 0 {
		errs = append(errs, engineerr.New(engineerr.Corruption, "tablet.Check", nil))
	}
	return errs
}

// KeyBytes returns the raw bytes of the key at the given row.
func (t *Tablet) KeyBytes(row int) []byte {
	stride := keyStride(t.KeyType)
	off := t.KeyBlock + row*stride
	return t.Data[off : off+stride]
}

// SetKeyBytes writes the raw bytes of the key at the given row.
func (t *Tablet) SetKeyBytes(row int, b []byte) {
	copy(t.KeyBytes(row), b)
}

// ColumnBytes returns the raw bytes of fixed column col at the given
// row.
func (t *Tablet) ColumnBytes(col, row int) []byte {
	stride := t.FixedStride[col]
	off := t.FixedBlock + t.FixedOffset[col] + row*stride
	return t.Data[off : off+stride]
}

// SetColumnBytes writes the raw bytes of fixed column col at the
// given row.
func (t *Tablet) SetColumnBytes(col, row int, b []byte) {
	copy(t.ColumnBytes(col, row), b)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
