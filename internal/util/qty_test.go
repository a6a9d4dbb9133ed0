package util

import "testing"

func TestParseQty(t *testing.T) {
	cases := []struct {
		name string
		in   string
		qty  int
		ok   bool
		unit string
	}{
		{"plain", "4 x Blue Widget", 4, true, ""},
		{"with unit", "Desk Lamp 5 pcs", 5, true, "pcs"},
		{"unit preferred", "Shelf 12, send 3 units", 3, true, "pcs"},
		{"thousands comma", "1,200 pcs", 1200, true, "pcs"},
		{"none", "Blue Widget", 0, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseQty(tc.in)
			if tc.ok != (got.Qty != nil) {
				t.Fatalf("qty presence: %v", got.Qty)
			}
			if tc.ok && *got.Qty != tc.qty {
				t.Fatalf("qty=%d want %d", *got.Qty, tc.qty)
			}
			if tc.unit == "" && got.Unit != nil {
				t.Fatalf("unexpected unit %q", *got.Unit)
			}
			if tc.unit != "" && (got.Unit == nil || *got.Unit != tc.unit) {
				t.Fatalf("unit=%v want %q", got.Unit, tc.unit)
			}
		})
	}
}
