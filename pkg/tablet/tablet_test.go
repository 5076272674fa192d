package tablet

import (
	"testing"

	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

func testConfig() tdconfig.Config {
	cfg := tdconfig.Default()
	cfg.TabletSize = 64 * 1024
	cfg.InitialKeys = 16
	cfg.KeyIncrement = 32
	return cfg
}

func checkTablet(t *testing.T, tab *Tablet) {
	t.Helper()
	for _, err := range tab.Check() {
		t.Errorf("invariant violated: %v", err)
	}
}

func TestCreateLayout(t *testing.T) {
	cfg := testConfig()
	tab := Create(cfg, 1, Int, 0, false)
	checkTablet(t, tab)

	if tab.KeyBlock != HeaderSize {
		t.Fatalf("KeyBlock = %d, want %d", tab.KeyBlock, HeaderSize)
	}
	wantKP := tab.KeyBlock + Sizeof(Int)*cfg.InitialKeys
	if tab.KeyPointersBlock != wantKP {
		t.Fatalf("KeyPointersBlock = %d, want %d", tab.KeyPointersBlock, wantKP)
	}
	if tab.FixedColumns != 0 {
		t.Fatalf("FixedColumns = %d, want 0", tab.FixedColumns)
	}
	if tab.FixedBlock != tab.VariableBlock {
		t.Fatalf("columnless tablet should have FixedBlock == VariableBlock")
	}
	if !tab.LastTablet {
		t.Fatalf("a freshly created tablet must be its own chain's last tablet")
	}
}

func TestAddColumnOffsets(t *testing.T) {
	cfg := testConfig()
	tab := Create(cfg, 1, Int, 0, false)

	if err := tab.AddColumn(cfg, "a", Int); err != nil {
		t.Fatalf("AddColumn a: %v", err)
	}
	if err := tab.AddColumn(cfg, "b", Double); err != nil {
		t.Fatalf("AddColumn b: %v", err)
	}
	checkTablet(t, tab)

	if tab.FixedOffset[0] != 0 {
		t.Fatalf("FixedOffset[0] = %d, want 0", tab.FixedOffset[0])
	}
	want := tab.FixedStride[0] * tab.PossibleRows
	if tab.FixedOffset[1] != want {
		t.Fatalf("FixedOffset[1] = %d, want %d", tab.FixedOffset[1], want)
	}
}

func TestAddColumnRejectsDuplicateOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.MaxColumns = 1
	tab := Create(cfg, 1, Int, 0, false)

	if err := tab.AddColumn(cfg, "a", Int); err != nil {
		t.Fatalf("first AddColumn: %v", err)
	}
	if err := tab.AddColumn(cfg, "b", Int); err == nil {
		t.Fatalf("AddColumn beyond MaxColumns should fail")
	}
}

func TestAddRowsGrowsAndRounds(t *testing.T) {
	cfg := testConfig()
	tab := Create(cfg, 1, Int, 0, false)
	if err := tab.AddColumn(cfg, "a", Int); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	before := tab.PossibleRows
	residual, err := tab.AddRows(cfg, 5)
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	if residual != 0 {
		t.Fatalf("residual = %d, want 0 (should have room)", residual)
	}
	if tab.PossibleRows%16 != 0 {
		t.Fatalf("PossibleRows = %d not a multiple of 16", tab.PossibleRows)
	}
	if tab.PossibleRows <= before {
		t.Fatalf("PossibleRows did not grow: %d -> %d", before, tab.PossibleRows)
	}
	checkTablet(t, tab)
}

func TestAddRowsSpillsWhenTabletFull(t *testing.T) {
	cfg := testConfig()
	cfg.TabletSize = 8 * 1024
	cfg.InitialKeys = 16
	tab := Create(cfg, 1, Int64, 0, true)
	if err := tab.AddColumn(cfg, "a", Double); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	residual, err := tab.AddRows(cfg, 1<<20)
	if err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	if residual == 0 {
		t.Fatalf("expected a residual once the tablet fills up")
	}
}

func TestRowAndColumnBytesRoundTrip(t *testing.T) {
	cfg := testConfig()
	tab := Create(cfg, 1, Int, 0, true)
	if err := tab.AddColumn(cfg, "x", Int64); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	tab.SetKeyBytes(0, []byte{1, 2, 3, 4})
	tab.SetColumnBytes(0, 0, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	tab.Rows = 1

	if got := tab.KeyBytes(0); string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("KeyBytes = %v, want [1 2 3 4]", got)
	}
	if got := tab.ColumnBytes(0, 0); got[0] != 1 {
		t.Fatalf("ColumnBytes[0] = %d, want 1", got[0])
	}
}

func TestTailCopiesHeadLayout(t *testing.T) {
	cfg := testConfig()
	head := Create(cfg, 1, Int, 7, true)
	if err := head.AddColumn(cfg, "a", Int); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := head.AddColumn(cfg, "b", Char); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	tail := Tail(cfg, head, 2, cfg.InitialKeys)
	checkTablet(t, tail)

	if tail.FixedColumns != head.FixedColumns {
		t.Fatalf("tail FixedColumns = %d, want %d", tail.FixedColumns, head.FixedColumns)
	}
	if tail.TableID != head.TableID {
		t.Fatalf("tail TableID = %d, want %d", tail.TableID, head.TableID)
	}
	for i := range head.FixedName {
		if tail.FixedName[i] != head.FixedName[i] {
			t.Fatalf("tail column %d name = %q, want %q", i, tail.FixedName[i], head.FixedName[i])
		}
	}
}

func TestGeneralize(t *testing.T) {
	cases := []struct {
		a, b, want Type
	}{
		{Int, Int64, Int64},
		{Int64, Float, Float},
		{Float, Double, Double},
		{Double, Double, Double},
		{Int, Int, Int},
	}
	for _, c := range cases {
		if got := Generalize(c.a, c.b); got != c.want {
			t.Errorf("Generalize(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
		if got := Generalize(c.b, c.a); got != c.want {
			t.Errorf("Generalize(%v, %v) = %v, want %v", c.b, c.a, got, c.want)
		}
	}
}
