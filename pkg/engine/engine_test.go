package engine

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"tabletdb.dev/tabletdb/pkg/ast"
	"tabletdb.dev/tabletdb/pkg/golden"
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
	cfg.NSlots = 16
	cfg.Block = 8
	cfg.MaxOps = 32
	cfg.Regs = 16
	return cfg
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

func populate(t *testing.T, e *Engine, rows int) int {
	t.Helper()
	id, err := e.CreateTable("widgets", tablet.Int)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.AddColumn(id, "n", tablet.Int64); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for i := 0; i < rows; i++ {
		key := make([]byte, 4)
		binary.LittleEndian.PutUint32(key, uint32(i))
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, uint64(i))
		if err := e.Insert(id, key, data); err != nil {
			t.Fatalf("Insert row %d: %v", i, err)
		}
	}
	return id
}

func countResult(t *testing.T, e *Engine, res *Result) int {
	t.Helper()
	n := 0
	for {
		row, err := res.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		if row == nil {
			break
		}
		n++
	}
	return n
}

func TestLifecycleCreateInsertQueryClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	e, err := Create(path, WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id := populate(t, e, 25)

	n, err := e.NumRows(id)
	if err != nil {
		t.Fatalf("NumRows: %v", err)
	}
	if n != 25 {
		t.Fatalf("NumRows = %d, want 25", n)
	}

	res, err := e.Execute(selectN(id))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := countResult(t, e, res); got != 25 {
		t.Fatalf("query returned %d rows, want 25", got)
	}
	if err := e.Release(res); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestReopenPreservesSchemaAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	cfg := testConfig()

	e, err := Create(path, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := populate(t, e, 10)
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(path, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e2.Close()

	gotID, err := e2.TableID("widgets")
	if err != nil {
		t.Fatalf("TableID: %v", err)
	}
	if gotID != id {
		t.Fatalf("TableID after reopen = %d, want %d", gotID, id)
	}

	n, err := e2.NumRows(gotID)
	if err != nil {
		t.Fatalf("NumRows after reopen: %v", err)
	}
	if n != 10 {
		t.Fatalf("NumRows after reopen = %d, want 10", n)
	}
}

func TestReleaseFreesResultTabletsFromCatalogIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	e, err := Create(path, WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer e.Close()

	id := populate(t, e, 5)
	res, err := e.Execute(selectN(id))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resultIDs := res.vctx.ResultIDs()
	if len(resultIDs) == 0 {
		t.Fatalf("query produced no result tablets")
	}
	if err := e.Release(res); err != nil {
		t.Fatalf("Release: %v", err)
	}

	for _, rid := range resultIDs {
		if _, err := e.db.ReadTablet(rid); err == nil {
			t.Fatalf("result tablet %d should have been freed from the disk index", rid)
		}
	}
}

func TestExecuteWithMultiThreadedWorkersMatchesDefault(t *testing.T) {
	cfg := testConfig()

	path1 := filepath.Join(t.TempDir(), "single.tablet")
	e1, err := Create(path1, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Create single: %v", err)
	}
	defer e1.Close()
	id1 := populate(t, e1, 500)

	path2 := filepath.Join(t.TempDir(), "parallel.tablet")
	e2, err := Create(path2, WithConfig(cfg), WithWorkers(4))
	if err != nil {
		t.Fatalf("Create parallel: %v", err)
	}
	defer e2.Close()
	id2 := populate(t, e2, 500)

	res1, err := e1.Execute(selectN(id1))
	if err != nil {
		t.Fatalf("Execute single: %v", err)
	}
	n1 := countResult(t, e1, res1)
	if err := e1.Release(res1); err != nil {
		t.Fatalf("Release single: %v", err)
	}

	res2, err := e2.Execute(selectN(id2))
	if err != nil {
		t.Fatalf("Execute parallel: %v", err)
	}
	n2 := countResult(t, e2, res2)
	if err := e2.Release(res2); err != nil {
		t.Fatalf("Release parallel: %v", err)
	}

	if n1 != n2 {
		t.Fatalf("single-threaded returned %d rows, multi-threaded returned %d", n1, n2)
	}
	if n1 != 500 {
		t.Fatalf("expected 500 rows, got %d", n1)
	}
}

func TestExecuteOnEmptyTableReturnsZeroRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	e, err := Create(path, WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer e.Close()

	id := populate(t, e, 0)
	res, err := e.Execute(selectN(id))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	n, err := res.CountRemaining()
	if err != nil {
		t.Fatalf("CountRemaining: %v", err)
	}
	if n != 0 {
		t.Fatalf("CountRemaining on an empty table = %d, want 0", n)
	}
	row, err := res.Row()
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row != nil {
		t.Fatalf("Row on an empty result = %+v, want nil (immediate exhaustion)", row)
	}
	if err := e.Release(res); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

// TestExecuteMixedAndOrWhereClause reproduces spec.md's "S3" scenario:
// "select col0 from test where col0 < 9 and col0 >= 7 or col0 = 3"
// against col0 = 0..9 matches rows 3, 7 and 8, in that order, since AND
// binds tighter than OR: (col0 < 9 and col0 >= 7) or col0 = 3.
func TestExecuteMixedAndOrWhereClause(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	e, err := Create(path, WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer e.Close()

	id, err := e.CreateTable("test", tablet.Int)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.AddColumn(id, "col0", tablet.Int); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for i := 0; i < 10; i++ {
		key := make([]byte, 4)
		binary.LittleEndian.PutUint32(key, uint32(i))
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(i))
		if err := e.Insert(id, key, data); err != nil {
			t.Fatalf("Insert row %d: %v", i, err)
		}
	}

	sel := &ast.Select{
		TableID: id,
		ResultCols: []ast.ResultColumn{
			{Expr: ast.Expr{Kind: ast.ExprColumn, Column: "col0"}, Name: "col0"},
		},
		Conditions: &ast.Condition{
			Kind: ast.CondLt,
			LHS:  &ast.Expr{Kind: ast.ExprColumn, Column: "col0"},
			RHS:  &ast.Expr{Kind: ast.ExprInt, IntVal: 9},
			And: &ast.Condition{
				Kind: ast.CondGe,
				LHS:  &ast.Expr{Kind: ast.ExprColumn, Column: "col0"},
				RHS:  &ast.Expr{Kind: ast.ExprInt, IntVal: 7},
			},
			Or: &ast.Condition{
				Kind: ast.CondEq,
				LHS:  &ast.Expr{Kind: ast.ExprColumn, Column: "col0"},
				RHS:  &ast.Expr{Kind: ast.ExprInt, IntVal: 3},
			},
		},
	}

	res, err := e.Execute(sel)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	defer e.Release(res)

	var got []int64
	for {
		row, err := res.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		if row == nil {
			break
		}
		got = append(got, int64(int32(binary.LittleEndian.Uint32(row.Columns[0]))))
	}

	want := []int64{3, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rows = %v, want %v", got, want)
		}
	}
}

// TestExecuteCrossChecksAgainstSQLiteOracle feeds the same schema,
// rows and WHERE clause through the tablet engine and through
// pkg/golden's SQLite oracle, and requires the two result sets to
// agree row for row. This is the engine's only independent check on
// its WHERE-clause semantics; golden on its own only exercises SQLite.
func TestExecuteCrossChecksAgainstSQLiteOracle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.tablet")
	e, err := Create(path, WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer e.Close()

	o, err := golden.Open()
	if err != nil {
		t.Fatalf("golden.Open: %v", err)
	}
	defer o.Close()

	id, err := e.CreateTable("widgets", tablet.Int)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.AddColumn(id, "weight", tablet.Float); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := o.CreateTable("widgets", []golden.Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "weight", Type: "REAL"},
	}); err != nil {
		t.Fatalf("golden CreateTable: %v", err)
	}

	for i := 0; i < 5; i++ {
		w := float64(i) * 1.5
		key := make([]byte, 4)
		binary.LittleEndian.PutUint32(key, uint32(i))
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, math.Float32bits(float32(w)))
		if err := e.Insert(id, key, data); err != nil {
			t.Fatalf("Insert row %d: %v", i, err)
		}
		if err := o.Insert("widgets", i, w); err != nil {
			t.Fatalf("golden Insert row %d: %v", i, err)
		}
	}

	sel := &ast.Select{
		TableID: id,
		ResultCols: []ast.ResultColumn{
			{Expr: ast.Expr{Kind: ast.ExprColumn, Column: "id"}, Name: "id"},
			{Expr: ast.Expr{Kind: ast.ExprColumn, Column: "weight"}, Name: "weight"},
		},
		Conditions: &ast.Condition{
			Kind: ast.CondGe,
			LHS:  &ast.Expr{Kind: ast.ExprColumn, Column: "weight"},
			RHS:  &ast.Expr{Kind: ast.ExprFloat, FloatVal: 3.0},
		},
	}
	res, err := e.Execute(sel)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	defer e.Release(res)

	type pair struct {
		id     int64
		weight float64
	}
	var got []pair
	for {
		row, err := res.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		if row == nil {
			break
		}
		got = append(got, pair{
			id:     int64(binary.LittleEndian.Uint32(row.Columns[0])),
			weight: float64(math.Float32frombits(binary.LittleEndian.Uint32(row.Columns[1]))),
		})
	}

	oracleRows, err := o.Query("SELECT id, weight FROM widgets WHERE weight >= 3.0 ORDER BY id")
	if err != nil {
		t.Fatalf("golden Query: %v", err)
	}
	var want []pair
	for _, r := range oracleRows {
		want = append(want, pair{id: r[0].(int64), weight: r[1].(float64)})
	}

	if len(got) != len(want) {
		t.Fatalf("engine returned %v, oracle returned %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("engine returned %v, oracle returned %v", got, want)
		}
	}
}
