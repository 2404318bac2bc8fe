package book

import (
	"math/rand"
	"testing"
)

func TestTreeUpsertFindDelete(t *testing.T) {
	tr := newLevelTree()

	lvl := tr.Upsert(100)
	if lvl == nil || lvl.Price != 100 {
		t.Fatal("upsert did not create level")
	}
	if tr.Upsert(100) != lvl {
		t.Error("second upsert must return the existing level")
	}
	if tr.Size() != 1 {
		t.Errorf("size = %d, want 1", tr.Size())
	}
	if tr.Find(100) != lvl {
		t.Error("find did not return the level")
	}
	if tr.Find(101) != nil {
		t.Error("find of absent price must return nil")
	}
	if !tr.Delete(100) {
		t.Error("delete of present price must return true")
	}
	if tr.Delete(100) {
		t.Error("delete of absent price must return false")
	}
	if !tr.Empty() {
		t.Error("tree should be empty")
	}
}

func TestTreeMinMax(t *testing.T) {
	tr := newLevelTree()
	for _, p := range []int64{105, 99, 120, 101, 87} {
		tr.Upsert(p)
	}

	if got := tr.Min(); got == nil || got.Price != 87 {
		t.Errorf("min = %v, want 87", got)
	}
	if got := tr.Max(); got == nil || got.Price != 120 {
		t.Errorf("max = %v, want 120", got)
	}

	tr.Delete(87)
	tr.Delete(120)
	if tr.Min().Price != 99 || tr.Max().Price != 105 {
		t.Errorf("min/max after deletes = %d/%d, want 99/105", tr.Min().Price, tr.Max().Price)
	}
}

func TestTreeOrderedWalk(t *testing.T) {
	tr := newLevelTree()
	prices := []int64{50, 10, 70, 30, 90, 20, 60}
	for _, p := range prices {
		tr.Upsert(p)
	}

	var asc []int64
	tr.Ascend(func(lvl *PriceLevel) bool {
		asc = append(asc, lvl.Price)
		return true
	})
	for i := 1; i < len(asc); i++ {
		if asc[i-1] >= asc[i] {
			t.Fatalf("ascend out of order: %v", asc)
		}
	}
	if len(asc) != len(prices) {
		t.Fatalf("ascend visited %d levels, want %d", len(asc), len(prices))
	}

	var desc []int64
	tr.Descend(func(lvl *PriceLevel) bool {
		desc = append(desc, lvl.Price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		if desc[i-1] <= desc[i] {
			t.Fatalf("descend out of order: %v", desc)
		}
	}
}

func TestTreeWalkEarlyStop(t *testing.T) {
	tr := newLevelTree()
	for p := int64(1); p <= 10; p++ {
		tr.Upsert(p)
	}

	visited := 0
	tr.Ascend(func(*PriceLevel) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("visited %d levels, want 3", visited)
	}
}

func TestTreeRandomChurn(t *testing.T) {
	tr := newLevelTree()
	rng := rand.New(rand.NewSource(7))
	live := make(map[int64]bool)

	for i := 0; i < 20000; i++ {
		p := int64(rng.Intn(500))
		if live[p] {
			if !tr.Delete(p) {
				t.Fatalf("delete(%d) failed for live price", p)
			}
			delete(live, p)
		} else {
			tr.Upsert(p)
			live[p] = true
		}

		if tr.Size() != len(live) {
			t.Fatalf("size = %d, want %d", tr.Size(), len(live))
		}
	}

	var walked []int64
	tr.Ascend(func(lvl *PriceLevel) bool {
		walked = append(walked, lvl.Price)
		return true
	})
	if len(walked) != len(live) {
		t.Fatalf("walk visited %d, want %d", len(walked), len(live))
	}
	for i := 1; i < len(walked); i++ {
		if walked[i-1] >= walked[i] {
			t.Fatal("walk out of order after churn")
		}
	}
}
