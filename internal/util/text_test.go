package util

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Blue   Widget ", "BLUE WIDGET"},
		{"blue–widget", "BLUE-WIDGET"},
		{"«Blue» Widget", "BLUE WIDGET"},
		{"Widget*2", "WIDGETX2"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizeIsOrderInsensitive(t *testing.T) {
	a := Canonicalize("Blue Widget Large")
	b := Canonicalize("Large blue widget")
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("Widget A")
	if len(tokens) != 1 || tokens[0] != "WIDGET" {
		t.Fatalf("tokens=%v", tokens)
	}
}

func TestLooksLikeCode(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"SKU-1001", true},
		{"W100", true},
		{"Blue Widget", false},
		{"ab", false},
		{"12345", false},
	}
	for _, tc := range cases {
		if got := LooksLikeCode(tc.in); got != tc.want {
			t.Fatalf("LooksLikeCode(%q)=%v", tc.in, got)
		}
	}
}

func TestDiceCoefficient(t *testing.T) {
	if got := DiceCoefficient("WIDGET", "WIDGET"); got != 1 {
		t.Fatalf("identical=%f", got)
	}
	if got := DiceCoefficient("WIDGET", "BRACKET"); got > 0.3 {
		t.Fatalf("unrelated=%f", got)
	}
	sim := DiceCoefficient("BLU WIDGET", "BLUE WIDGET")
	if sim < 0.7 || sim >= 1 {
		t.Fatalf("typo=%f", sim)
	}
}
