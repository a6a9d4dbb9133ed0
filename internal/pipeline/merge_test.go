package pipeline

import (
	"errors"
	"testing"
	"time"

	"orderintake/internal"
	"orderintake/internal/util"
)

func TestMergeSumsAndRevalidates(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 7, MinOrderQty: 1}
	snap := testSnapshot(t, []internal.Product{widget})

	a := internal.Order{ID: "a", Items: []internal.ValidationOutcome{Validate(resolvedResult(widget, 3, 0.9), snap)}}
	b := internal.Order{ID: "b", Items: []internal.ValidationOutcome{Validate(resolvedResult(widget, 5, 0.9), snap)}}
	FinalizeOrder(&a)
	FinalizeOrder(&b)
	if a.Status != internal.StatusValid || b.Status != internal.StatusValid {
		t.Fatalf("inputs should be valid: %s, %s", a.Status, b.Status)
	}

	merged, err := Merge([]internal.Order{a, b}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Items) != 1 {
		t.Fatalf("items=%d", len(merged.Items))
	}
	got := merged.Items[0]
	if got.RequestedQty != 8 {
		t.Fatalf("qty=%d", got.RequestedQty)
	}
	// 3 and 5 each fit the stock of 7; their sum does not.
	if got.Status != internal.StatusInsufficientStock {
		t.Fatalf("status=%s", got.Status)
	}
	if merged.Status != internal.StatusInsufficientStock || !merged.HasIssues {
		t.Fatalf("order status=%s hasIssues=%v", merged.Status, merged.HasIssues)
	}
}

func TestMergePreservesFirstAppearanceOrder(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1}
	bracket := internal.Product{SKU: "B-200", Name: "Steel Bracket", Price: 1.2, Stock: 100, MinOrderQty: 1}
	snap := testSnapshot(t, []internal.Product{widget, bracket})

	a := internal.Order{ID: "a", Items: []internal.ValidationOutcome{
		Validate(resolvedResult(widget, 2, 0.9), snap),
		Validate(resolvedResult(bracket, 3, 0.9), snap),
	}}
	b := internal.Order{ID: "b", Items: []internal.ValidationOutcome{
		Validate(resolvedResult(bracket, 1, 0.9), snap),
		Validate(resolvedResult(widget, 4, 0.9), snap),
	}}

	merged, err := Merge([]internal.Order{a, b}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Items) != 2 {
		t.Fatalf("items=%d", len(merged.Items))
	}
	if *merged.Items[0].SKU != "W-100" || merged.Items[0].RequestedQty != 6 {
		t.Fatalf("item0: %+v", merged.Items[0])
	}
	if *merged.Items[1].SKU != "B-200" || merged.Items[1].RequestedQty != 4 {
		t.Fatalf("item1: %+v", merged.Items[1])
	}
}

func TestMergeCarriesProblemLinesIndividually(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1}
	snap := testSnapshot(t, []internal.Product{widget})

	unmatched := Validate(internal.MatchResult{
		Item:       item("Quantum Flux", 2),
		State:      internal.MatchUnmatched,
		Candidates: []internal.MatchCandidate{},
	}, snap)

	a := internal.Order{ID: "a", Items: []internal.ValidationOutcome{unmatched}}
	b := internal.Order{ID: "b", Items: []internal.ValidationOutcome{unmatched}}

	merged, err := Merge([]internal.Order{a, b}, snap)
	if err != nil {
		t.Fatal(err)
	}
	// Unmatched lines never group, even when identical.
	if len(merged.Items) != 2 {
		t.Fatalf("items=%d", len(merged.Items))
	}
	if merged.Status != internal.StatusUnmatched {
		t.Fatalf("status=%s", merged.Status)
	}
}

func TestMergeMetadata(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1}
	snap := testSnapshot(t, []internal.Product{widget})

	early := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	a := internal.Order{
		ID:              "a",
		Items:           []internal.ValidationOutcome{Validate(resolvedResult(widget, 1, 0.9), snap)},
		DeliveryDate:    &late,
		ShippingAddress: util.StringPtr("742 Evergreen Terrace"),
		CustomerName:    util.StringPtr("Alice Johnson"),
		Urgency:         internal.UrgencyNormal,
	}
	b := internal.Order{
		ID:              "b",
		Items:           []internal.ValidationOutcome{Validate(resolvedResult(widget, 1, 0.9), snap)},
		DeliveryDate:    &early,
		ShippingAddress: util.StringPtr("12 Harbor Road"),
		CustomerName:    util.StringPtr("Bob Smith"),
		Urgency:         internal.UrgencyHigh,
	}

	merged, err := Merge([]internal.Order{a, b}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if merged.DeliveryDate == nil || !merged.DeliveryDate.Equal(early) {
		t.Fatalf("deliveryDate=%v", merged.DeliveryDate)
	}
	if *merged.ShippingAddress != "742 Evergreen Terrace" {
		t.Fatalf("address=%q", *merged.ShippingAddress)
	}
	if len(merged.SourceAddresses) != 2 || len(merged.SourceCustomers) != 2 {
		t.Fatalf("sources: %v / %v", merged.SourceAddresses, merged.SourceCustomers)
	}
	if merged.Urgency != internal.UrgencyHigh {
		t.Fatalf("urgency=%s", merged.Urgency)
	}
}

func TestMergeSingleOrderKeepsOutcomes(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1}
	snap := testSnapshot(t, []internal.Product{widget})

	a := internal.Order{ID: "a", Items: []internal.ValidationOutcome{Validate(resolvedResult(widget, 4, 0.9), snap)}}
	FinalizeOrder(&a)

	merged, err := Merge([]internal.Order{a}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Items) != 1 || merged.Items[0].RequestedQty != 4 {
		t.Fatalf("items=%+v", merged.Items)
	}
	if merged.Items[0].Status != internal.StatusValid {
		t.Fatalf("status=%s", merged.Items[0].Status)
	}
	if merged.TotalPrice != a.TotalPrice || merged.TotalItems != a.TotalItems {
		t.Fatalf("totals: %f/%d vs %f/%d", merged.TotalPrice, merged.TotalItems, a.TotalPrice, a.TotalItems)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	snap := testSnapshot(t, []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
	})
	if _, err := Merge(nil, snap); !errors.Is(err, ErrNoOrders) {
		t.Fatalf("err=%v", err)
	}
}

func TestMergeUnknownSKU(t *testing.T) {
	widget := internal.Product{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1}
	fullSnap := testSnapshot(t, []internal.Product{widget})
	prunedSnap := testSnapshot(t, []internal.Product{
		{SKU: "B-200", Name: "Steel Bracket", Price: 1.2, Stock: 100, MinOrderQty: 1},
	})

	a := internal.Order{ID: "a", Items: []internal.ValidationOutcome{Validate(resolvedResult(widget, 1, 0.9), fullSnap)}}
	if _, err := Merge([]internal.Order{a}, prunedSnap); !errors.Is(err, ErrUnknownSKU) {
		t.Fatalf("err=%v", err)
	}
}
