package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern   = regexp.MustCompile(`(?i)\b(pcs|pc|pieces?|units?|boxes|box|packs?|sets?|pairs?|kg|m)\b\.?`)
	numberPattern = regexp.MustCompile(`(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+|\d+)`)
)

// ParsedQty is the result of scanning a line or cell for a quantity token.
// Qty stays nil when no usable integer is present.
type ParsedQty struct {
	Qty    *int
	Unit   *string
	QtyRaw *string
}

// ParseQty finds the first integer quantity in the input, preferring a
// number followed by a unit word. Thousand separators are tolerated.
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, "\u00A0", " ")

	qtyRaw := ""
	qtyToken := ""

	withUnit := regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+|\d+)\s*(pcs|pc|pieces?|units?|boxes|box|packs?|sets?|pairs?|kg|m)\b`)
	if wm := withUnit.FindStringSubmatch(line); len(wm) > 2 {
		qtyRaw = strings.TrimSpace(wm[1] + " " + wm[2])
		qtyToken = strings.TrimSpace(wm[1])
	} else if nm := numberPattern.FindStringSubmatch(line); len(nm) > 1 {
		qtyRaw = strings.TrimSpace(nm[1])
		qtyToken = qtyRaw
	}

	var qtyPtr *int
	if qtyToken != "" {
		norm := normalizeNumericToken(qtyToken)
		if parsed, err := strconv.Atoi(norm); err == nil {
			qtyPtr = IntPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		u := normalizeUnit(um[1])
		unitPtr = &u
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(unit), "."))
	switch u {
	case "pc", "pcs", "piece", "pieces", "unit", "units":
		return "pcs"
	case "box", "boxes":
		return "box"
	case "pack", "packs":
		return "pack"
	case "set", "sets":
		return "set"
	case "pair", "pairs":
		return "pair"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	return compact
}
