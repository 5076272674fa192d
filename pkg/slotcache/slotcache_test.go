package slotcache

import (
	"testing"

	"tabletdb.dev/tabletdb/pkg/engineerr"
	"tabletdb.dev/tabletdb/pkg/tablet"
	"tabletdb.dev/tabletdb/pkg/tdconfig"
)

// memBackend is an in-memory Backend stand-in for pkg/dbfile, letting
// these tests exercise eviction/write-back without touching disk.
type memBackend struct {
	store   map[int]*tablet.Tablet
	writes  []int
	readErr error
}

func newMemBackend() *memBackend {
	return &memBackend{store: make(map[int]*tablet.Tablet)}
}

func (b *memBackend) ReadTablet(id int) (*tablet.Tablet, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	t, ok := b.store[id]
	if !ok {
		return nil, engineerr.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (b *memBackend) WriteTablet(t *tablet.Tablet) error {
	b.writes = append(b.writes, t.ID)
	cp := *t
	b.store[t.ID] = &cp
	return nil
}

func newTestTablet(cfg tdconfig.Config, id int) *tablet.Tablet {
	return tablet.Create(cfg, id, tablet.Int, 0, false)
}

func TestAllocLoadUnlock(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	tab := newTestTablet(cfg, 1)
	if err := c.Alloc(1, tab); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := c.Unlock(1); err == nil {
		t.Fatalf("Unlock beyond the pin count should fail")
	}
}

func TestLoadPinsAndMisses(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	tab := newTestTablet(cfg, 1)
	if err := b.WriteTablet(tab); err != nil {
		t.Fatalf("WriteTablet: %v", err)
	}

	got, err := c.Load(1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("Load returned tablet id %d, want 1", got.ID)
	}

	got2, err := c.Load(1)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got2 != got {
		t.Fatalf("second Load of a resident id returned a different pointer")
	}

	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestFindSlotEvictsAndWritesBack(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(2, b)

	t1 := newTestTablet(cfg, 1)
	t2 := newTestTablet(cfg, 2)
	if err := c.Alloc(1, t1); err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	if err := c.Alloc(2, t2); err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock 1: %v", err)
	}
	if err := c.Unlock(2); err != nil {
		t.Fatalf("Unlock 2: %v", err)
	}

	t3 := newTestTablet(cfg, 3)
	if err := c.Alloc(3, t3); err != nil {
		t.Fatalf("Alloc 3 (should evict 1 or 2): %v", err)
	}
	if len(b.writes) != 1 {
		t.Fatalf("expected exactly one write-back on eviction, got %d", len(b.writes))
	}
}

func TestFindSlotAllPinnedFails(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(1, b)

	t1 := newTestTablet(cfg, 1)
	if err := c.Alloc(1, t1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	t2 := newTestTablet(cfg, 2)
	err := c.Alloc(2, t2)
	if err == nil {
		t.Fatalf("expected AllPinned error when every slot is pinned")
	}
	if !engineerr.Is(err, engineerr.AllPinned) {
		t.Fatalf("expected AllPinned kind, got %v", err)
	}
}

func TestLoadNextPinsSuccessorBeforeReleasingPredecessor(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	t1 := newTestTablet(cfg, 1)
	t1.Next = 2
	t1.LastTablet = false
	t2 := newTestTablet(cfg, 2)

	if err := b.WriteTablet(t1); err != nil {
		t.Fatalf("WriteTablet 1: %v", err)
	}
	if err := b.WriteTablet(t2); err != nil {
		t.Fatalf("WriteTablet 2: %v", err)
	}

	cur, err := c.Load(1)
	if err != nil {
		t.Fatalf("Load 1: %v", err)
	}

	next, err := c.LoadNext(cur.ID, cur.Next)
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if next.ID != 2 {
		t.Fatalf("LoadNext returned tablet id %d, want 2", next.ID)
	}

	if err := c.Unlock(1); err == nil {
		t.Fatalf("tablet 1 should already be fully unpinned by LoadNext")
	}
	if err := c.Unlock(2); err != nil {
		t.Fatalf("Unlock 2: %v", err)
	}
}

func TestFlushWritesEveryResidentSlot(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	t1 := newTestTablet(cfg, 1)
	if err := c.Alloc(1, t1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(b.writes) != 1 {
		t.Fatalf("expected one write-back from Flush, got %d", len(b.writes))
	}
}

func TestFlushFailsOnPinnedSlot(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	t1 := newTestTablet(cfg, 1)
	if err := c.Alloc(1, t1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if err := c.Flush(); err == nil {
		t.Fatalf("Flush with a pinned slot outstanding should fail")
	}
}

func TestRemoveDropsWithoutWriteBack(t *testing.T) {
	cfg := tdconfig.Default()
	b := newMemBackend()
	c := New(4, b)

	t1 := newTestTablet(cfg, 1)
	if err := c.Alloc(1, t1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := c.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	c.Remove(1)
	if len(b.writes) != 0 {
		t.Fatalf("Remove should never write back, got %d writes", len(b.writes))
	}
	if _, err := c.Load(1); err == nil {
		t.Fatalf("Load after Remove should miss the backend too")
	}
}
