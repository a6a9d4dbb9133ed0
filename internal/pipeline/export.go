package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"orderintake/internal"
)

// ExportOrderToXLSX writes one order, line per item plus a totals row.
func ExportOrderToXLSX(order internal.Order, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "requested_name", "requested_qty", "status",
		"sku", "matched_name", "match_score",
		"stock", "min_order_qty", "unit_price", "line_total",
		"issue", "alt_sku", "alt_score",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range order.Items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, i+1)
		set(2, item.RequestedName)
		set(3, item.RequestedQty)
		set(4, string(item.Status))
		set(5, derefString(item.SKU))
		set(6, derefString(item.MatchedName))
		set(7, item.MatchScore)
		set(8, derefInt(item.Stock))
		set(9, derefInt(item.MinOrderQty))
		set(10, derefFloat(item.Price))
		set(11, derefFloat(item.LineTotal))
		set(12, derefString(item.Issue))
		if len(item.Alternatives) > 0 {
			set(13, item.Alternatives[0].SKU)
			set(14, item.Alternatives[0].Score)
		}
	}

	summaryRow := len(order.Items) + 3
	setSummary := func(col int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, summaryRow)
		_ = f.SetCellValue(sheet, cell, value)
	}
	setSummary(2, "TOTAL")
	setSummary(3, order.TotalItems)
	setSummary(4, string(order.Status))
	setSummary(11, order.TotalPrice)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
