package golden

import "testing"

func TestCreateInsertQueryRoundTrip(t *testing.T) {
	o, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer o.Close()

	if err := o.CreateTable("widgets", []Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "weight", Type: "REAL"},
	}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := o.Insert("widgets", i, float64(i)*1.5); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	rows, err := o.Query("SELECT id, weight FROM widgets WHERE weight >= 3.0 ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	first, ok := rows[0][0].(int64)
	if !ok || first != 2 {
		t.Fatalf("first row id = %v, want 2", rows[0][0])
	}
}

func TestQueryOnEmptyTableReturnsNoRows(t *testing.T) {
	o, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer o.Close()

	if err := o.CreateTable("empty", []Column{{Name: "id", Type: "INTEGER"}}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows, err := o.Query("SELECT id FROM empty")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(rows))
	}
}
