package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/util"
)

var (
	ErrNoOrders   = errors.New("no orders to merge")
	ErrUnknownSKU = errors.New("merged item references a sku missing from the catalog")
)

// Merge consolidates several orders into one. Lines that resolved to a SKU
// are grouped in first-appearance order and their quantities summed, then
// re-validated against the given snapshot, so a sum can fail stock checks
// its parts passed. Unmatched and ambiguous lines carry through untouched.
// Inputs are never mutated.
func Merge(orders []internal.Order, snap *catalog.Snapshot) (internal.Order, error) {
	if len(orders) == 0 {
		return internal.Order{}, ErrNoOrders
	}

	type group struct {
		sku   string
		qty   int
		first internal.ValidationOutcome
	}
	groups := map[string]*group{}
	// sequence preserves first-appearance order: grouped lines keyed by
	// SKU, pass-through lines kept as literal outcomes.
	type slot struct {
		sku     string
		literal *internal.ValidationOutcome
	}
	sequence := []slot{}

	for _, order := range orders {
		for _, item := range order.Items {
			if item.SKU != nil && isGroupable(item.Status) {
				g, ok := groups[*item.SKU]
				if !ok {
					g = &group{sku: *item.SKU, first: item}
					groups[*item.SKU] = g
					sequence = append(sequence, slot{sku: *item.SKU})
				}
				g.qty += item.RequestedQty
				continue
			}
			copied := item
			sequence = append(sequence, slot{literal: &copied})
		}
	}

	merged := internal.Order{
		ID:      "MERGED-" + uuid.NewString(),
		Urgency: internal.UrgencyNormal,
	}

	for _, s := range sequence {
		if s.literal != nil {
			merged.Items = append(merged.Items, *s.literal)
			continue
		}
		g := groups[s.sku]
		product, ok := snap.Product(g.sku)
		if !ok {
			return internal.Order{}, fmt.Errorf("%w: %s", ErrUnknownSKU, g.sku)
		}
		merged.Items = append(merged.Items, validateQuantity(g.first, product, g.qty))
	}

	mergeMetadata(&merged, orders)
	FinalizeOrder(&merged)
	return merged, nil
}

func isGroupable(status internal.ItemStatus) bool {
	switch status {
	case internal.StatusValid, internal.StatusBelowMinimumOrder, internal.StatusInsufficientStock:
		return true
	default:
		return false
	}
}

// validateQuantity rebuilds an outcome for a summed quantity against the
// merge-time snapshot.
func validateQuantity(first internal.ValidationOutcome, product internal.Product, qty int) internal.ValidationOutcome {
	out := internal.ValidationOutcome{
		RequestedName: first.RequestedName,
		RequestedQty:  qty,
		SKU:           util.StringPtr(product.SKU),
		MatchedName:   util.StringPtr(product.Name),
		Stock:         util.IntPtr(product.Stock),
		MinOrderQty:   util.IntPtr(product.MinOrderQty),
		Price:         util.FloatPtr(product.Price),
		LineTotal:     util.FloatPtr(round2(product.Price * float64(qty))),
		MatchScore:    first.MatchScore,
	}

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

// mergeMetadata combines the header fields: earliest delivery date, first
// non-empty address/customer/notes, highest urgency. Every distinct
// address and customer seen is kept on the diagnostic lists.
func mergeMetadata(merged *internal.Order, orders []internal.Order) {
	for _, order := range orders {
		if order.DeliveryDate != nil {
			if merged.DeliveryDate == nil || order.DeliveryDate.Before(*merged.DeliveryDate) {
				d := *order.DeliveryDate
				merged.DeliveryDate = &d
			}
		}
		if addr := derefTrimmed(order.ShippingAddress); addr != "" {
			if merged.ShippingAddress == nil {
				merged.ShippingAddress = util.StringPtr(addr)
			}
			merged.SourceAddresses = appendDistinct(merged.SourceAddresses, addr)
		}
		if name := derefTrimmed(order.CustomerName); name != "" {
			if merged.CustomerName == nil {
				merged.CustomerName = util.StringPtr(name)
			}
			merged.SourceCustomers = appendDistinct(merged.SourceCustomers, name)
		}
		if notes := derefTrimmed(order.Notes); notes != "" && merged.Notes == nil {
			merged.Notes = util.StringPtr(notes)
		}
		if urgencyRank(order.Urgency) > urgencyRank(merged.Urgency) {
			merged.Urgency = order.Urgency
		}
	}
}

func urgencyRank(u internal.Urgency) int {
	switch u {
	case internal.UrgencyHigh:
		return 2
	case internal.UrgencyMedium:
		return 1
	default:
		return 0
	}
}

func derefTrimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func appendDistinct(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
