package pipeline

import (
	"testing"

	"orderintake/internal"
)

func resolvedResult(p internal.Product, qty int, score float64) internal.MatchResult {
	return internal.MatchResult{
		Item:       item(p.Name, qty),
		State:      internal.MatchResolved,
		Best:       &p,
		Candidates: []internal.MatchCandidate{{SKU: p.SKU, Name: p.Name, Score: score}},
	}
}

func TestValidateRules(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 7, MinOrderQty: 5}
	snap := testSnapshot(t, []internal.Product{widget})

	cases := []struct {
		name   string
		qty    int
		status internal.ItemStatus
	}{
		{"below moq", 4, internal.StatusBelowMinimumOrder},
		{"at moq", 5, internal.StatusValid},
		{"between", 6, internal.StatusValid},
		{"at stock", 7, internal.StatusValid},
		{"over stock", 8, internal.StatusInsufficientStock},
		{"zero qty sentinel", 0, internal.StatusBelowMinimumOrder},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Validate(resolvedResult(widget, tc.qty, 0.95), snap)
			if out.Status != tc.status {
				t.Fatalf("status=%s want %s", out.Status, tc.status)
			}
			if out.SKU == nil || *out.SKU != "W-100" {
				t.Fatalf("sku=%v", out.SKU)
			}
			if out.LineTotal == nil || *out.LineTotal != 2.5*float64(tc.qty) {
				t.Fatalf("lineTotal=%v", out.LineTotal)
			}
		})
	}
}

func TestValidateUnmatchedAndAmbiguous(t *testing.T) {
	snap := testSnapshot(t, []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 7, MinOrderQty: 1},
	})

	unmatched := Validate(internal.MatchResult{
		Item:       item("Quantum Flux", 2),
		State:      internal.MatchUnmatched,
		Candidates: []internal.MatchCandidate{},
	}, snap)
	if unmatched.Status != internal.StatusUnmatched {
		t.Fatalf("status=%s", unmatched.Status)
	}
	if unmatched.Issue == nil || *unmatched.Issue != "Product not found in catalog" {
		t.Fatalf("issue=%v", unmatched.Issue)
	}
	if unmatched.SKU != nil {
		t.Fatalf("sku=%v", unmatched.SKU)
	}

	candidates := []internal.MatchCandidate{
		{SKU: "W-101", Name: "Widget A", Score: 0.8},
		{SKU: "W-102", Name: "Widget B", Score: 0.78},
	}
	ambiguous := Validate(internal.MatchResult{
		Item:       item("Widget", 2),
		State:      internal.MatchAmbiguous,
		Candidates: candidates,
	}, snap)
	if ambiguous.Status != internal.StatusAmbiguous {
		t.Fatalf("status=%s", ambiguous.Status)
	}
	if len(ambiguous.Alternatives) != 2 {
		t.Fatalf("alternatives=%+v", ambiguous.Alternatives)
	}
}

func TestFinalizeOrderTotals(t *testing.T) {
	snap := testSnapshot(t, []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
		{SKU: "B-200", Name: "Steel Bracket", Price: 10, Stock: 3, MinOrderQty: 1},
	})
	widget, _ := snap.Product("W-100")
	bracket, _ := snap.Product("B-200")

	order := internal.Order{Items: []internal.ValidationOutcome{
		Validate(resolvedResult(widget, 4, 0.9), snap),
		Validate(resolvedResult(bracket, 5, 0.9), snap),
	}}
	FinalizeOrder(&order)

	if order.Status != internal.StatusInsufficientStock {
		t.Fatalf("status=%s", order.Status)
	}
	if !order.HasIssues {
		t.Fatal("hasIssues should be true")
	}
	// Insufficient-stock lines are excluded from the totals.
	if order.TotalPrice != 10.0 {
		t.Fatalf("totalPrice=%f", order.TotalPrice)
	}
	if order.TotalItems != 4 {
		t.Fatalf("totalItems=%d", order.TotalItems)
	}
}
