package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"orderintake/internal"
)

// LoadCSV reads a product catalog file with the Product_Code /
// Product_Name / Description / Price / Available_in_Stock /
// Min_Order_Quantity column layout. Column order is header-driven and
// header names are matched loosely. An optional Aliases column holds
// extra searchable names separated by ';'.
func LoadCSV(path string) ([]internal.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog csv: no data rows in %s", path)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[normalizeColumn(h)] = i
	}

	skuIdx, ok := findColumn(cols, "product_code", "sku", "code")
	if !ok {
		return nil, fmt.Errorf("catalog csv: missing product code column")
	}
	nameIdx, ok := findColumn(cols, "product_name", "name")
	if !ok {
		return nil, fmt.Errorf("catalog csv: missing product name column")
	}
	descIdx, _ := findColumn(cols, "description")
	priceIdx, _ := findColumn(cols, "price", "unit_price")
	stockIdx, _ := findColumn(cols, "available_in_stock", "stock", "quantity_in_stock")
	moqIdx, _ := findColumn(cols, "min_order_quantity", "moq", "minimum_order_quantity")
	aliasIdx, _ := findColumn(cols, "aliases", "alias")

	out := make([]internal.Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		sku := cell(row, skuIdx)
		name := cell(row, nameIdx)
		if sku == "" || name == "" {
			continue
		}

		p := internal.Product{
			SKU:         sku,
			Name:        name,
			Description: cell(row, descIdx),
			MinOrderQty: 1,
		}
		if v := cell(row, priceIdx); v != "" {
			p.Price, _ = strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		}
		if v := cell(row, stockIdx); v != "" {
			p.Stock, _ = strconv.Atoi(v)
		}
		if v := cell(row, moqIdx); v != "" {
			if moq, err := strconv.Atoi(v); err == nil && moq > 0 {
				p.MinOrderQty = moq
			}
		}
		if v := cell(row, aliasIdx); v != "" {
			for _, alias := range strings.Split(v, ";") {
				alias = strings.TrimSpace(alias)
				if alias != "" {
					p.Aliases = append(p.Aliases, alias)
				}
			}
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("catalog csv: no usable products in %s", path)
	}
	return out, nil
}

func normalizeColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, " ", "_")
	return strings.TrimPrefix(h, "\ufeff")
}

func findColumn(cols map[string]int, probes ...string) (int, bool) {
	for _, probe := range probes {
		if idx, ok := cols[probe]; ok {
			return idx, true
		}
	}
	return -1, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
