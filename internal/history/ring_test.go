package history

import (
	"strconv"
	"testing"

	"papertrader/internal/model"
)

func rec(action string) model.TradeRecord {
	return model.TradeRecord{Action: action}
}

func TestRingNewestFirst(t *testing.T) {
	r := NewRing(3)
	r.Add(rec("a"))
	r.Add(rec("b"))
	r.Add(rec("c"))

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	for i, want := range []string{"c", "b", "a"} {
		if got[i].Action != want {
			t.Fatalf("index %d: got %q, want %q", i, got[i].Action, want)
		}
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(rec(strconv.Itoa(i)))
	}
	got := r.List()
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	for i, want := range []string{"4", "3", "2"} {
		if got[i].Action != want {
			t.Fatalf("index %d: got %q, want %q", i, got[i].Action, want)
		}
	}
}

func TestRingDefaultCapacity(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		r.Add(rec(strconv.Itoa(i)))
	}
	if r.Len() != DefaultCapacity {
		t.Fatalf("len: got %d, want %d", r.Len(), DefaultCapacity)
	}
}

func TestListReturnsCopy(t *testing.T) {
	r := NewRing(3)
	r.Add(rec("a"))
	got := r.List()
	got[0].Action = "mutated"
	if r.List()[0].Action != "a" {
		t.Fatal("List exposed internal storage")
	}
}
