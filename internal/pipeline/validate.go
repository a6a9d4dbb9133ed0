package pipeline

import (
	"fmt"
	"math"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/util"
)

// Validate applies the business rules to one match result. Rules fire in a
// fixed order: unmatched, ambiguous, below minimum order, insufficient
// stock. qty == MOQ and qty == stock both pass. Pure function; never
// mutates its inputs.
func Validate(res internal.MatchResult, snap *catalog.Snapshot) internal.ValidationOutcome {
	out := internal.ValidationOutcome{
		RequestedName: requestedName(res.Item),
		RequestedQty:  res.Item.Qty,
		MatchScore:    topScore(res),
	}

	switch res.State {
	case internal.MatchUnmatched:
		out.Status = internal.StatusUnmatched
		out.Issue = util.StringPtr("Product not found in catalog")
		return out
	case internal.MatchAmbiguous:
		out.Status = internal.StatusAmbiguous
		out.Alternatives = res.Candidates
		out.Issue = util.StringPtr("Ambiguous match, please verify")
		return out
	}

	product := *res.Best
	// Re-resolve through the snapshot so diagnostics reflect the catalog
	// version this request runs against.
	if p, ok := snap.Product(product.SKU); ok {
		product = p
	}

	qty := res.Item.Qty
	lineTotal := round2(product.Price * float64(qty))
	out.SKU = util.StringPtr(product.SKU)
	out.MatchedName = util.StringPtr(product.Name)
	out.Stock = util.IntPtr(product.Stock)
	out.MinOrderQty = util.IntPtr(product.MinOrderQty)
	out.Price = util.FloatPtr(product.Price)
	out.LineTotal = util.FloatPtr(lineTotal)

	switch {
	case qty < product.MinOrderQty:
		out.Status = internal.StatusBelowMinimumOrder
		out.Issue = util.StringPtr(fmt.Sprintf("Below minimum order quantity of %d", product.MinOrderQty))
	case qty > product.Stock:
		out.Status = internal.StatusInsufficientStock
		out.Issue = util.StringPtr(fmt.Sprintf("Insufficient stock (requested: %d, available: %d)", qty, product.Stock))
	default:
		out.Status = internal.StatusValid
	}
	return out
}

// FinalizeOrder recomputes the aggregate fields from the items: worst-case
// status, totals excluding insufficient-stock lines, issue flag.
func FinalizeOrder(order *internal.Order) {
	worst := internal.StatusValid
	totalPrice := 0.0
	totalItems := 0
	hasIssues := false

	for _, item := range order.Items {
		if item.Status.Severity() > worst.Severity() {
			worst = item.Status
		}
		if item.Status != internal.StatusValid {
			hasIssues = true
		}
		if item.Status != internal.StatusInsufficientStock && item.LineTotal != nil {
			totalPrice += *item.LineTotal
			totalItems += item.RequestedQty
		}
	}

	order.Status = worst
	order.TotalPrice = round2(totalPrice)
	order.TotalItems = totalItems
	order.HasIssues = hasIssues
}

func requestedName(item internal.CandidateItem) string {
	if item.Description != "" {
		return item.Description
	}
	return item.RawLine
}

func topScore(res internal.MatchResult) float64 {
	if len(res.Candidates) == 0 {
		return 0
	}
	return res.Candidates[0].Score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
