// Package dbfile implements the on-disk database file: a fixed header,
// a growable meta index mapping tablet id to on-disk slot, and an
// arena of fixed-size tablet blocks. It is the slotcache.Backend a
// running engine loads tablets from and writes them back to.
package dbfile

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"

	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

const metaEntrySize = 12 // used(4) + id(4) + diskSlot(4)

// tableEntrySize is the on-disk width of one TableInfo record: a
// length-prefixed name plus five bookkeeping ints.
func tableEntrySize(cfg tdconfig.Config) int {
	return 4 + cfg.MaxTableName + 4 + 4 + 4 + 4 + 4
}

// headerSize is the fixed-width region at the start of the file,
// holding scalar bookkeeping plus the table catalog.
func headerSize(cfg tdconfig.Config) int {
	return 16 + cfg.MaxTables*tableEntrySize(cfg)
}

func tabletHeaderWireSize(cfg tdconfig.Config) int {
	return 76 + cfg.MaxColumns*(cfg.MaxColumnName+4+4+4)
}

// TableInfo is one named table's catalog entry: the table's tablet
// chain bounds and its current insertion cursor.
type TableInfo struct {
	Name        string
	Status      int // 0 = unused slot, 1 = live table
	FirstTablet int
	LastTablet  int
	WriteCursor int
	TabletCount int
}

type metaEntry struct {
	Used     bool
	ID       int
	DiskSlot int
}

// Database is an open tablet database file. It implements
// slotcache.Backend directly, so a Cache can be built straight on top
// of it.
type Database struct {
	cfg  tdconfig.Config
	path string
	f    *os.File

	mu              sync.Mutex
	numTablets      int
	allocedTablets  int
	tabletIDCounter int
	blockSize       int
	tables          []TableInfo

	meta     []metaEntry
	diskSlot map[int]int // tablet id -> index into meta
}

// Stats summarizes a database file's occupancy, used by
// administrative tooling and tests rather than by the query path.
type Stats struct {
	TabletCount   int
	ArenaBytes    int64
	FreeMetaSlots int
}

// Create initializes a brand new, empty database file at path. The
// file is not populated with a valid header until Close writes it;
// a process that crashes between Create and a clean Close leaves an
// unusable file, matching the engine this is modeled on, which has no
// crash-recovery story either.
func Create(path string, cfg tdconfig.Config) (*Database, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, engineerr.New(engineerr.Io, "dbfile.Create", err)
	}
	if tabletHeaderWireSize(cfg) > tablet.HeaderSize {
		f.Close()
		os.Remove(path)
		return nil, engineerr.New(engineerr.InvalidArgument, "dbfile.Create",
			fmt.Errorf("tablet header needs %d bytes but HeaderSize is %d", tabletHeaderWireSize(cfg), tablet.HeaderSize))
	}

	allocedTablets := cfg.InfoSize
	d := &Database{
		cfg:            cfg,
		path:           path,
		f:              f,
		allocedTablets: allocedTablets,
		blockSize:      headerSize(cfg) + allocedTablets*metaEntrySize,
		tables:         make([]TableInfo, cfg.MaxTables),
		meta:           make([]metaEntry, allocedTablets),
		diskSlot:       make(map[int]int),
	}
	for i := range d.meta {
		d.meta[i].DiskSlot = i
	}
	return d, nil
}

// Open loads an existing database file written by a prior clean
// Close.
func Open(path string, cfg tdconfig.Config) (*Database, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, engineerr.New(engineerr.Io, "dbfile.Open", err)
	}

	hdr := make([]byte, headerSize(cfg))
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, engineerr.New(engineerr.Io, "dbfile.Open", err)
	}

	d := &Database{cfg: cfg, path: path, f: f}
	d.numTablets = int(int32(binary.LittleEndian.Uint32(hdr[0:4])))
	d.allocedTablets = int(int32(binary.LittleEndian.Uint32(hdr[4:8])))
	d.tabletIDCounter = int(int32(binary.LittleEndian.Uint32(hdr[8:12])))
	d.blockSize = int(int32(binary.LittleEndian.Uint32(hdr[12:16])))
	d.tables = make([]TableInfo, cfg.MaxTables)
	off := 16
	for i := range d.tables {
		entry := hdr[off : off+tableEntrySize(cfg)]
		d.tables[i] = decodeTableInfo(entry, cfg)
		off += tableEntrySize(cfg)
	}

	metaBytes := make([]byte, d.allocedTablets*metaEntrySize)
	if _, err := f.ReadAt(metaBytes, int64(headerSize(cfg))); err != nil {
		f.Close()
		return nil, engineerr.New(engineerr.Io, "dbfile.Open", err)
	}
	d.meta = make([]metaEntry, d.allocedTablets)
	d.diskSlot = make(map[int]int, d.numTablets)
	for i := range d.meta {
		e := metaBytes[i*metaEntrySize : (i+1)*metaEntrySize]
		m := metaEntry{
			Used:     binary.LittleEndian.Uint32(e[0:4]) != 0,
			ID:       int(int32(binary.LittleEndian.Uint32(e[4:8]))),
			DiskSlot: int(int32(binary.LittleEndian.Uint32(e[8:12]))),
		}
		d.meta[i] = m
		if m.Used {
			d.diskSlot[m.ID] = i
		}
	}
	return d, nil
}

// Close writes the header and meta index back to the file and closes
// it. It must be the last call made against d.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hdr := make([]byte, headerSize(d.cfg))
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(d.numTablets))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(d.allocedTablets))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(d.tabletIDCounter))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(d.blockSize))
	off := 16
	for _, ti := range d.tables {
		encodeTableInfo(hdr[off:off+tableEntrySize(d.cfg)], ti, d.cfg)
		off += tableEntrySize(d.cfg)
	}
	if _, err := d.f.WriteAt(hdr, 0); err != nil {
		return engineerr.New(engineerr.Io, "dbfile.Close", err)
	}

	metaBytes := make([]byte, len(d.meta)*metaEntrySize)
	for i, m := range d.meta {
		e := metaBytes[i*metaEntrySize : (i+1)*metaEntrySize]
		if m.Used {
			binary.LittleEndian.PutUint32(e[0:4], 1)
		}
		binary.LittleEndian.PutUint32(e[4:8], uint32(m.ID))
		binary.LittleEndian.PutUint32(e[8:12], uint32(m.DiskSlot))
	}
	if _, err := d.f.WriteAt(metaBytes, int64(headerSize(d.cfg))); err != nil {
		return engineerr.New(engineerr.Io, "dbfile.Close", err)
	}

	return d.f.Close()
}

// NextTabletID reserves a fresh, never-before-used tablet id.
func (d *Database) NextTabletID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.tabletIDCounter
	d.tabletIDCounter++
	d.numTablets++
	return id
}

// ReadTablet loads the tablet with the given id from disk, verifying
// its checksum. It implements slotcache.Backend.
func (d *Database) ReadTablet(id int) (*tablet.Tablet, error) {
	d.mu.Lock()
	idx, ok := d.diskSlot[id]
	cfg := d.cfg
	d.mu.Unlock()
	if !ok {
		return nil, engineerr.New(engineerr.Corruption, "dbfile.ReadTablet", fmt.Errorf("tablet %d has no meta-index entry", id))
	}

	offset := int64(d.blockSize) + int64(idx)*int64(cfg.TabletSize)
	hdrBuf := make([]byte, tablet.HeaderSize)
	if _, err := d.f.ReadAt(hdrBuf, offset); err != nil {
		return nil, engineerr.New(engineerr.Io, "dbfile.ReadTablet", err)
	}

	t, err := decodeTabletHeader(hdrBuf, cfg)
	if err != nil {
		return nil, err
	}
	if t.Size < tablet.HeaderSize || t.Size > cfg.TabletSize {
		return nil, engineerr.New(engineerr.Corruption, "dbfile.ReadTablet", fmt.Errorf("tablet %d has invalid size %d", id, t.Size))
	}

	bodyLen := t.Size - tablet.HeaderSize
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := d.f.ReadAt(body, offset+int64(tablet.HeaderSize)); err != nil {
			return nil, engineerr.New(engineerr.Io, "dbfile.ReadTablet", err)
		}
	}

	sum := checksum(body)
	if sum != t.Checksum {
		return nil, engineerr.New(engineerr.Corruption, "dbfile.ReadTablet", fmt.Errorf("tablet %d failed checksum verification", id))
	}

	t.Data = make([]byte, t.Size)
	copy(t.Data[tablet.HeaderSize:], body)
	return t, nil
}

// WriteTablet writes a resident tablet back to its on-disk slot,
// allocating one if this is the tablet's first write. It implements
// slotcache.Backend.
func (d *Database) WriteTablet(t *tablet.Tablet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t.Size > d.cfg.TabletSize {
		return engineerr.New(engineerr.OutOfSpace, "dbfile.WriteTablet", nil)
	}

	idx, ok := d.diskSlot[t.ID]
	if !ok {
		var err error
		idx, err = d.allocDiskSlot(t.ID)
		if err != nil {
			return err
		}
	}

	t.Checksum = checksum(t.Data[tablet.HeaderSize:t.Size])

	hdrBuf := make([]byte, tablet.HeaderSize)
	encodeTabletHeader(hdrBuf, t, d.cfg)

	offset := int64(d.blockSize) + int64(idx)*int64(d.cfg.TabletSize)
	if _, err := d.f.WriteAt(hdrBuf, offset); err != nil {
		return engineerr.New(engineerr.Io, "dbfile.WriteTablet", err)
	}
	if body := t.Data[tablet.HeaderSize:t.Size]; len(body) > 0 {
		if _, err := d.f.WriteAt(body, offset+int64(tablet.HeaderSize)); err != nil {
			return engineerr.New(engineerr.Io, "dbfile.WriteTablet", err)
		}
	}
	return nil
}

func checksum(body []byte) [16]byte {
	var out [16]byte
	h, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b.New only fails for a bad key or an out-of-range
		// size, neither of which applies to a fixed 16-byte digest
		// with no key.
		panic(err)
	}
	h.Write(body)
	copy(out[:], h.Sum(nil))
	return out
}

// FreeTablet marks a tablet's meta-index entry unused without
// touching its on-disk bytes, used when a result tablet is discarded:
// the slot is free for reuse but nothing has to be zeroed, since a
// future write to that slot overwrites it in full.
func (d *Database) FreeTablet(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.diskSlot[id]
	if !ok {
		return
	}
	d.meta[idx] = metaEntry{DiskSlot: idx}
	delete(d.diskSlot, id)
}

// allocDiskSlot must be called with mu held. It finds or creates an
// unused meta-index entry for id.
func (d *Database) allocDiskSlot(id int) (int, error) {
	for i := range d.meta {
		if !d.meta[i].Used {
			return d.claimSlot(i, id), nil
		}
	}
	first, err := d.growMetaIndex()
	if err != nil {
		return 0, err
	}
	return d.claimSlot(first, id), nil
}

func (d *Database) claimSlot(idx, id int) int {
	d.meta[idx] = metaEntry{Used: true, ID: id, DiskSlot: idx}
	d.diskSlot[id] = idx
	return idx
}

// growMetaIndex grows the meta index by cfg.InfoIncrement entries and
// returns the index of the first newly available entry. Must be
// called with mu held.
//
// If the grown index still fits within the gap already reserved
// before the tablet arena, every existing entry keeps its disk slot
// and the new entries are simply appended. Otherwise the arena itself
// must grow by one tablet's worth of space to make room, which
// requires relocating the tablet that used to sit at disk slot 0: its
// old bytes are physically copied to the new slot the old entry 0 is
// renumbered into, every other entry's disk slot shifts down by one
// (their byte offsets are unchanged, since blockSize also grows by
// exactly one tablet), and blockSize advances by one tablet size.
//
// Unlike the engine this is modeled on, which skips the physical copy
// when the relocated tablet happens to already be resident in the
// slot cache, this always performs it: dbfile has no visibility into
// slotcache residency, and an unconditional copy is always safe since
// a later write-back from a resident copy simply supersedes it.
func (d *Database) growMetaIndex() (int, error) {
	old := len(d.meta)
	newAlloced := old + d.cfg.InfoIncrement
	newRegionBytes := newAlloced * metaEntrySize

	if headerSize(d.cfg)+newRegionBytes <= d.blockSize {
		newMeta := make([]metaEntry, newAlloced)
		copy(newMeta, d.meta)
		for i := old; i < newAlloced; i++ {
			newMeta[i] = metaEntry{DiskSlot: i}
		}
		d.meta = newMeta
		d.allocedTablets = newAlloced
		log.Printf("dbfile: grew meta index to %d entries in place", newAlloced)
		return old, nil
	}

	if old == 0 {
		// Nothing occupies slot 0 yet; there is no tablet to relocate.
		newMeta := make([]metaEntry, newAlloced)
		for i := range newMeta {
			newMeta[i] = metaEntry{DiskSlot: i}
		}
		d.blockSize += d.cfg.TabletSize
		d.meta = newMeta
		d.allocedTablets = newAlloced
		return 0, nil
	}

	if d.meta[0].Used {
		buf := make([]byte, d.cfg.TabletSize)
		if _, err := d.f.ReadAt(buf, int64(d.blockSize)); err != nil {
			return 0, engineerr.New(engineerr.Io, "dbfile.growMetaIndex", err)
		}
		newOffset := int64(d.blockSize) + int64(d.cfg.TabletSize)*int64(old)
		if _, err := d.f.WriteAt(buf, newOffset); err != nil {
			return 0, engineerr.New(engineerr.Io, "dbfile.growMetaIndex", err)
		}
	}

	newMeta := make([]metaEntry, newAlloced)
	copy(newMeta, d.meta[1:old])
	newMeta[old-1] = d.meta[0]
	for i := 0; i < old; i++ {
		newMeta[i].DiskSlot = i
	}
	for i := old; i < newAlloced; i++ {
		newMeta[i] = metaEntry{DiskSlot: i}
	}

	for id, oldIdx := range d.diskSlot {
		if oldIdx == 0 {
			d.diskSlot[id] = old - 1
		} else {
			d.diskSlot[id] = oldIdx - 1
		}
	}

	d.blockSize += d.cfg.TabletSize
	d.meta = newMeta
	d.allocedTablets = newAlloced
	log.Printf("dbfile: grew meta index to %d entries, relocating tablet at disk slot 0", newAlloced)
	return old, nil
}

// AllocTableSlot claims the first free table-catalog entry for a new
// table named name.
func (d *Database) AllocTableSlot(name string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(name) >= d.cfg.MaxTableName {
		return 0, engineerr.New(engineerr.InvalidArgument, "dbfile.AllocTableSlot", fmt.Errorf("table name %q too long", name))
	}
	for _, ti := range d.tables {
		if ti.Status == 1 && ti.Name == name {
			return 0, engineerr.New(engineerr.InvalidArgument, "dbfile.AllocTableSlot", fmt.Errorf("table %q already exists", name))
		}
	}
	for i := range d.tables {
		if d.tables[i].Status == 0 {
			d.tables[i] = TableInfo{Name: name, Status: 1, FirstTablet: -1, LastTablet: -1}
			return i, nil
		}
	}
	return 0, engineerr.New(engineerr.InvalidArgument, "dbfile.AllocTableSlot", fmt.Errorf("no free table slots"))
}

// Table returns the catalog entry for table id.
func (d *Database) Table(id int) (TableInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.tables) || d.tables[id].Status == 0 {
		return TableInfo{}, engineerr.New(engineerr.InvalidArgument, "dbfile.Table", fmt.Errorf("no such table %d", id))
	}
	return d.tables[id], nil
}

// TableIDByName resolves a table name to its catalog id.
func (d *Database) TableIDByName(name string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, ti := range d.tables {
		if ti.Status == 1 && ti.Name == name {
			return i, nil
		}
	}
	return 0, engineerr.ErrNotFound
}

// SetTable overwrites table id's catalog entry.
func (d *Database) SetTable(id int, ti TableInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.tables) {
		return engineerr.New(engineerr.InvalidArgument, "dbfile.SetTable", fmt.Errorf("no such table %d", id))
	}
	d.tables[id] = ti
	return nil
}

// Stats reports the database file's current occupancy.
func (d *Database) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	free := 0
	for _, m := range d.meta {
		if !m.Used {
			free++
		}
	}
	return Stats{
		TabletCount:   d.numTablets,
		ArenaBytes:    int64(len(d.meta)) * int64(d.cfg.TabletSize),
		FreeMetaSlots: free,
	}
}

func decodeTableInfo(e []byte, cfg tdconfig.Config) TableInfo {
	nameLen := int(binary.LittleEndian.Uint32(e[0:4]))
	if nameLen > cfg.MaxTableName {
		nameLen = 0
	}
	name := string(e[4 : 4+nameLen])
	off := 4 + cfg.MaxTableName
	return TableInfo{
		Name:        name,
		Status:      int(int32(binary.LittleEndian.Uint32(e[off : off+4]))),
		FirstTablet: int(int32(binary.LittleEndian.Uint32(e[off+4 : off+8]))),
		LastTablet:  int(int32(binary.LittleEndian.Uint32(e[off+8 : off+12]))),
		WriteCursor: int(int32(binary.LittleEndian.Uint32(e[off+12 : off+16]))),
		TabletCount: int(int32(binary.LittleEndian.Uint32(e[off+16 : off+20]))),
	}
}

func encodeTableInfo(e []byte, ti TableInfo, cfg tdconfig.Config) {
	binary.LittleEndian.PutUint32(e[0:4], uint32(len(ti.Name)))
	copy(e[4:4+cfg.MaxTableName], ti.Name)
	off := 4 + cfg.MaxTableName
	binary.LittleEndian.PutUint32(e[off:off+4], uint32(ti.Status))
	binary.LittleEndian.PutUint32(e[off+4:off+8], uint32(ti.FirstTablet))
	binary.LittleEndian.PutUint32(e[off+8:off+12], uint32(ti.LastTablet))
	binary.LittleEndian.PutUint32(e[off+12:off+16], uint32(ti.WriteCursor))
	binary.LittleEndian.PutUint32(e[off+16:off+20], uint32(ti.TabletCount))
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func encodeTabletHeader(buf []byte, t *tablet.Tablet, cfg tdconfig.Config) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.ID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(t.Next))
	binary.LittleEndian.PutUint32(buf[8:12], boolToUint32(t.LastTablet))
	binary.LittleEndian.PutUint32(buf[12:16], boolToUint32(t.InTable))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(t.TableID))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(t.KeyType))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.Rows))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(t.PossibleRows))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(t.RowStride))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(t.KeyBlock))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(t.KeyPointersBlock))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(t.FixedBlock))
	binary.LittleEndian.PutUint32(buf[48:52], uint32(t.VariableBlock))
	binary.LittleEndian.PutUint32(buf[52:56], uint32(t.Size))
	binary.LittleEndian.PutUint32(buf[56:60], uint32(t.FixedColumns))
	copy(buf[60:76], t.Checksum[:])

	off := 76
	nameW := cfg.MaxColumnName
	for i := 0; i < cfg.MaxColumns; i++ {
		dst := buf[off+i*nameW : off+(i+1)*nameW]
		for j := range dst {
			dst[j] = 0
		}
		if i < t.FixedColumns {
			copy(dst, t.FixedName[i])
		}
	}
	off += cfg.MaxColumns * nameW

	putCol := func(base int, get func(i int) int) {
		for i := 0; i < cfg.MaxColumns; i++ {
			v := 0
			if i < t.FixedColumns {
				v = get(i)
			}
			binary.LittleEndian.PutUint32(buf[base+i*4:base+i*4+4], uint32(v))
		}
	}
	putCol(off, func(i int) int { return int(t.FixedType[i]) })
	off += cfg.MaxColumns * 4
	putCol(off, func(i int) int { return t.FixedStride[i] })
	off += cfg.MaxColumns * 4
	putCol(off, func(i int) int { return t.FixedOffset[i] })
}

func decodeTabletHeader(buf []byte, cfg tdconfig.Config) (*tablet.Tablet, error) {
	if len(buf) < tabletHeaderWireSize(cfg) {
		return nil, engineerr.New(engineerr.Corruption, "dbfile.decodeTabletHeader", fmt.Errorf("short header"))
	}
	t := &tablet.Tablet{
		ID:               int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		Next:             int(int32(binary.LittleEndian.Uint32(buf[4:8]))),
		LastTablet:       binary.LittleEndian.Uint32(buf[8:12]) != 0,
		InTable:          binary.LittleEndian.Uint32(buf[12:16]) != 0,
		TableID:          int(int32(binary.LittleEndian.Uint32(buf[16:20]))),
		KeyType:          tablet.Type(binary.LittleEndian.Uint32(buf[20:24])),
		Rows:             int(int32(binary.LittleEndian.Uint32(buf[24:28]))),
		PossibleRows:     int(int32(binary.LittleEndian.Uint32(buf[28:32]))),
		RowStride:        int(int32(binary.LittleEndian.Uint32(buf[32:36]))),
		KeyBlock:         int(int32(binary.LittleEndian.Uint32(buf[36:40]))),
		KeyPointersBlock: int(int32(binary.LittleEndian.Uint32(buf[40:44]))),
		FixedBlock:       int(int32(binary.LittleEndian.Uint32(buf[44:48]))),
		VariableBlock:    int(int32(binary.LittleEndian.Uint32(buf[48:52]))),
		Size:             int(int32(binary.LittleEndian.Uint32(buf[52:56]))),
		FixedColumns:     int(int32(binary.LittleEndian.Uint32(buf[56:60]))),
	}
	copy(t.Checksum[:], buf[60:76])
	if t.FixedColumns > cfg.MaxColumns || t.FixedColumns < 0 {
		return nil, engineerr.New(engineerr.Corruption, "dbfile.decodeTabletHeader", fmt.Errorf("invalid fixed column count %d", t.FixedColumns))
	}

	off := 76
	nameW := cfg.MaxColumnName
	for i := 0; i < t.FixedColumns; i++ {
		raw := buf[off+i*nameW : off+(i+1)*nameW]
		end := 0
		for end < len(raw) && raw[end] != 0 {
			end++
		}
		t.FixedName = append(t.FixedName, string(raw[:end]))
	}
	off += cfg.MaxColumns * nameW

	readCol := func(base int) []int {
		out := make([]int, t.FixedColumns)
		for i := range out {
			out[i] = int(int32(binary.LittleEndian.Uint32(buf[base+i*4 : base+i*4+4])))
		}
		return out
	}
	types := readCol(off)
	t.FixedType = make([]tablet.Type, len(types))
	for i, v := range types {
		t.FixedType[i] = tablet.Type(v)
	}
	off += cfg.MaxColumns * 4
	t.FixedStride = readCol(off)
	off += cfg.MaxColumns * 4
	t.FixedOffset = readCol(off)

	t.SetMaxColumns(cfg.MaxColumns)
	return t, nil
}
