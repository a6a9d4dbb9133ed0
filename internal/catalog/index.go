package catalog

import (
	"orderintake/internal"
	"orderintake/internal/util"
)

// Index is the matching view over one set of products. It is built once
// per snapshot and read concurrently without locking.
type Index struct {
	BySKU          map[string]internal.Product
	ByCode         map[string][]internal.Product
	ByName         map[string][]internal.Product
	TokenToSKUs    map[string]map[string]struct{}
	CanonicalBySKU map[string][]string
	SortedSKUs     []string
}

func BuildIndex(products []internal.Product) *Index {
	idx := &Index{
		BySKU:          map[string]internal.Product{},
		ByCode:         map[string][]internal.Product{},
		ByName:         map[string][]internal.Product{},
		TokenToSKUs:    map[string]map[string]struct{}{},
		CanonicalBySKU: map[string][]string{},
	}

	for _, p := range products {
		idx.BySKU[p.SKU] = p
		idx.SortedSKUs = append(idx.SortedSKUs, p.SKU)

		if code := util.NormalizeCode(p.SKU); code != "" {
			idx.ByCode[code] = append(idx.ByCode[code], p)
		}

		// Every searchable name of the product: canonical name first,
		// then aliases. The matcher takes the max score across them.
		names := append([]string{p.Name}, p.Aliases...)
		for _, name := range names {
			norm := util.NormalizeName(name)
			if norm == "" {
				continue
			}
			idx.ByName[norm] = append(idx.ByName[norm], p)
			idx.CanonicalBySKU[p.SKU] = append(idx.CanonicalBySKU[p.SKU], util.Canonicalize(name))
			for _, token := range util.Tokenize(name) {
				if _, ok := idx.TokenToSKUs[token]; !ok {
					idx.TokenToSKUs[token] = map[string]struct{}{}
				}
				idx.TokenToSKUs[token][p.SKU] = struct{}{}
			}
		}
	}

	return idx
}
