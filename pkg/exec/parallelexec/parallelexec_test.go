package parallelexec

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"tabletdb.dev/tabletdb/pkg/ast"
	"tabletdb.dev/tabletdb/pkg/catalog"
	"tabletdb.dev/tabletdb/pkg/compiler"
	"tabletdb.dev/tabletdb/pkg/dbfile"
	"tabletdb.dev/tabletdb/pkg/exec"
	"tabletdb.dev/tabletdb/pkg/metrics"
	"tabletdb.dev/tabletdb/pkg/opcode"
	"tabletdb.dev/tabletdb/pkg/reader"
	"tabletdb.dev/tabletdb/pkg/slotcache"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

func testConfig() tdconfig.Config {
	cfg := tdconfig.Default()
	cfg.TabletSize = 16 * 1024
	cfg.InitialKeys = 16
	cfg.KeyIncrement = 16
	cfg.InfoSize = 4
	cfg.InfoIncrement = 4
	cfg.MaxTables = 4
	cfg.MaxColumns = 4
	cfg.NSlots = 32
	cfg.Block = 8
	cfg.MaxOps = 32
	cfg.Regs = 16
	return cfg
}

type fixture struct {
	cfg   tdconfig.Config
	cat   *catalog.Catalog
	cache *slotcache.Cache
	inner *exec.Executor
	reg   *metrics.Registry
}

func newFixture(t *testing.T, rows int) (*fixture, int) {
	t.Helper()
	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "db.tablet")
	db, err := dbfile.Create(path, cfg)
	if err != nil {
		t.Fatalf("dbfile.Create: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := slotcache.New(cfg.NSlots, db)
	cat := catalog.New(cfg, db, cache)
	reg := metrics.NewRegistry(nil)
	inner := exec.New(cfg, cat, cache, reg)

	id, err := cat.CreateTable("widgets", tablet.Int)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := cat.AddColumn(id, "n", tablet.Int64); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for i := 0; i < rows; i++ {
		key := make([]byte, 4)
		binary.LittleEndian.PutUint32(key, uint32(i))
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, uint64(i))
		if err := cat.Insert(id, key, data); err != nil {
			t.Fatalf("Insert row %d: %v", i, err)
		}
	}
	return &fixture{cfg: cfg, cat: cat, cache: cache, inner: inner, reg: reg}, id
}

func selectN(tableID int) *ast.Select {
	return &ast.Select{
		TableID: tableID,
		ResultCols: []ast.ResultColumn{
			{Expr: ast.Expr{Kind: ast.ExprColumn, Column: "id"}, Name: "id"},
			{Expr: ast.Expr{Kind: ast.ExprColumn, Column: "n"}, Name: "n"},
		},
	}
}

func TestNewDefaultsNonPositiveWorkersToGOMAXPROCS(t *testing.T) {
	fx, _ := newFixture(t, 1)
	e := New(fx.inner, 0)
	if e.workers <= 0 {
		t.Fatalf("workers = %d, want a positive default", e.workers)
	}
}

func TestClaimSliceWalksChainAndStops(t *testing.T) {
	fx, id := newFixture(t, 20)

	firstID, err := fx.cat.FirstTablet(id)
	if err != nil {
		t.Fatalf("FirstTablet: %v", err)
	}
	tab, err := fx.cache.Load(firstID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	e := New(fx.inner, 2)
	cur := &tabCursor{tab: tab, row: 0}

	claimed := 0
	for {
		_, _, n, ok, err := e.claimSlice(cur)
		if err != nil {
			t.Fatalf("claimSlice: %v", err)
		}
		if !ok {
			break
		}
		claimed += n
	}
	if claimed != 20 {
		t.Fatalf("claimSlice covered %d rows total, want 20", claimed)
	}

	if err := fx.cache.Unlock(cur.tab.ID); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestRunProducesSameRowsAsSingleThreaded(t *testing.T) {
	fx, id := newFixture(t, 600)

	prog, err := compiler.Compile(fx.cfg, fx.cat, fx.reg, selectN(id))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	vctx := opcode.New(prog)
	e := New(fx.inner, 4)
	ids, err := e.Run(vctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) == 0 {
		t.Fatalf("Run produced no result tablets")
	}

	rd, err := reader.Init(fx.cache, vctx)
	if err != nil {
		t.Fatalf("reader.Init: %v", err)
	}
	defer rd.Free()

	seen := make(map[int64]bool)
	count := 0
	for {
		row, err := rd.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		if row == nil {
			break
		}
		count++
		seen[int64(binary.LittleEndian.Uint64(row.Columns[1]))] = true
	}
	if count != 600 {
		t.Fatalf("read %d rows, want 600", count)
	}
	for i := int64(0); i < 600; i++ {
		if !seen[i] {
			t.Fatalf("missing row with n=%d in the parallel result", i)
		}
	}
}

func TestRunRejectsEmptyProgram(t *testing.T) {
	fx, _ := newFixture(t, 1)
	e := New(fx.inner, 2)
	vctx := opcode.New(opcode.Program{})
	if _, err := e.Run(vctx); err == nil {
		t.Fatalf("expected an error running an empty program")
	}
}
