package orderbook

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(d(100))
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(d(100)); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(d(200))
	if !tree.MinLevel().Price.Equal(d(100)) {
		t.Error("expected min=100")
	}
	if !tree.MaxLevel().Price.Equal(d(200)) {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(d(100)) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(d(100)) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree()
	if tree.DeleteLevel(d(123)) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := NewRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestUpsertDuplicateLevel(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(d(150))
	pl2 := tree.UpsertLevel(d(150))
	if pl1 != pl2 {
		t.Error("Upsert should return the same node for duplicate level")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

func TestIterationOrder(t *testing.T) {
	tree := NewRBTree()
	for _, p := range []int64{50, 10, 90, 30, 70} {
		tree.UpsertLevel(d(p))
	}

	var asc []int64
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		asc = append(asc, lvl.Price.IntPart())
		return true
	})
	want := []int64{10, 30, 50, 70, 90}
	for i := range want {
		if asc[i] != want[i] {
			t.Fatalf("ascending order wrong: %v", asc)
		}
	}

	var desc []int64
	tree.ForEachDescending(func(lvl *PriceLevel) bool {
		desc = append(desc, lvl.Price.IntPart())
		return true
	})
	for i := range want {
		if desc[i] != want[len(want)-1-i] {
			t.Fatalf("descending order wrong: %v", desc)
		}
	}
}

func TestIterationEarlyStop(t *testing.T) {
	tree := NewRBTree()
	for _, p := range []int64{1, 2, 3, 4} {
		tree.UpsertLevel(d(p))
	}
	n := 0
	tree.ForEachAscending(func(*PriceLevel) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Errorf("expected iteration to stop after 2 levels, visited %d", n)
	}
}

func TestRandomInsertDelete(t *testing.T) {
	tree := NewRBTree()
	rng := rand.New(rand.NewSource(1))
	prices := rng.Perm(500)
	for _, p := range prices {
		tree.UpsertLevel(d(int64(p)))
	}
	if tree.Size() != 500 {
		t.Fatalf("expected 500 levels, got %d", tree.Size())
	}

	for _, p := range prices[:250] {
		if !tree.DeleteLevel(d(int64(p))) {
			t.Fatalf("delete %d failed", p)
		}
	}
	if tree.Size() != 250 {
		t.Fatalf("expected 250 levels, got %d", tree.Size())
	}

	// remaining levels still iterate sorted
	prev := int64(-1)
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		p := lvl.Price.IntPart()
		if p <= prev {
			t.Fatalf("out of order: %d after %d", p, prev)
		}
		prev = p
		return true
	})
}
