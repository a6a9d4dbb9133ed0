package pipeline

import (
	"reflect"
	"testing"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/config"
)

func testSnapshot(t *testing.T, products []internal.Product) *catalog.Snapshot {
	t.Helper()
	store, err := catalog.NewStore(products)
	if err != nil {
		t.Fatal(err)
	}
	return store.Snapshot()
}

func testMatcher(t *testing.T, products []internal.Product) *Matcher {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return NewMatcher(cfg, testSnapshot(t, products))
}

func item(desc string, qty int) internal.CandidateItem {
	return internal.CandidateItem{LineNo: 1, Source: internal.SourceEmailText, RawLine: desc, Description: desc, Qty: qty}
}

func TestMatchResolvesTypo(t *testing.T) {
	m := testMatcher(t, []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
		{SKU: "B-200", Name: "Steel Bracket", Price: 1.2, Stock: 50, MinOrderQty: 5},
	})

	res := m.Match(NormalizeItem(item("Blu Widget", 4)))
	if res.State != internal.MatchResolved {
		t.Fatalf("state=%s candidates=%+v", res.State, res.Candidates)
	}
	if res.Best == nil || res.Best.SKU != "W-100" {
		t.Fatalf("best=%+v", res.Best)
	}
	if res.Candidates[0].Score < 0.6 {
		t.Fatalf("score=%f", res.Candidates[0].Score)
	}
}

func TestMatchAmbiguousNearTies(t *testing.T) {
	m := testMatcher(t, []internal.Product{
		{SKU: "W-101", Name: "Widget A", Price: 1, Stock: 10, MinOrderQty: 1},
		{SKU: "W-102", Name: "Widget B", Price: 1, Stock: 10, MinOrderQty: 1},
	})

	res := m.Match(NormalizeItem(item("Widget", 2)))
	if res.State != internal.MatchAmbiguous {
		t.Fatalf("state=%s", res.State)
	}
	if res.Best != nil {
		t.Fatalf("best should be nil, got %+v", res.Best)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates=%+v", res.Candidates)
	}
	// Equal scores break ties by ascending SKU.
	if res.Candidates[0].SKU != "W-101" || res.Candidates[1].SKU != "W-102" {
		t.Fatalf("order: %s, %s", res.Candidates[0].SKU, res.Candidates[1].SKU)
	}
}

func TestMatchUnmatched(t *testing.T) {
	m := testMatcher(t, []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
	})

	res := m.Match(NormalizeItem(item("Quantum Flux Capacitor", 1)))
	if res.State != internal.MatchUnmatched {
		t.Fatalf("state=%s candidates=%+v", res.State, res.Candidates)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates=%+v", res.Candidates)
	}
}

func TestMatchExactCodeFastPath(t *testing.T) {
	m := testMatcher(t, []internal.Product{
		{SKU: "SKU-1001", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
		{SKU: "SKU-1002", Name: "Red Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
	})

	res := m.Match(NormalizeItem(item("SKU-1001", 3)))
	if res.State != internal.MatchResolved || res.Best == nil || res.Best.SKU != "SKU-1001" {
		t.Fatalf("res=%+v", res)
	}
}

func TestMatchDeterministic(t *testing.T) {
	products := []internal.Product{
		{SKU: "W-103", Name: "Widget C", Price: 1, Stock: 10, MinOrderQty: 1},
		{SKU: "W-101", Name: "Widget A", Price: 1, Stock: 10, MinOrderQty: 1},
		{SKU: "W-102", Name: "Widget B", Price: 1, Stock: 10, MinOrderQty: 1},
	}
	m := testMatcher(t, products)

	first := m.Match(NormalizeItem(item("Widget", 1)))
	for i := 0; i < 10; i++ {
		again := m.Match(NormalizeItem(item("Widget", 1)))
		if !reflect.DeepEqual(first.Candidates, again.Candidates) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first.Candidates, again.Candidates)
		}
	}
}
