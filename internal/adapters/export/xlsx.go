// Package export builds admin spreadsheet reports.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pattadon/petshop/internal/domain"
)

// OrdersWorkbook renders recent orders and low-stock variants into a
// two-sheet workbook for the admin dashboard download.
func OrdersWorkbook(orders []domain.Order, lowStock []domain.Variant) (*excelize.File, error) {
	f := excelize.NewFile()

	const ordersSheet = "Orders"
	f.SetSheetName("Sheet1", ordersSheet)
	headers := []string{"Order ID", "User ID", "Status", "Status (TH)", "Created", "Expires", "Pickup Place", "Cancel Reason", "Items", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ordersSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for row, o := range orders {
		expire := ""
		if o.ExpireAt != nil {
			expire = o.ExpireAt.Format("2006-01-02 15:04")
		}
		items := 0
		for _, l := range o.Lines {
			items += l.Quantity
		}
		values := []any{
			o.ID.String(),
			o.UserID.String(),
			string(o.Status),
			domain.StatusLabelTH[o.Status],
			o.CreatedAt.Format("2006-01-02 15:04"),
			expire,
			o.PickupPlace,
			o.CancelReason,
			items,
			o.CartTotal,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(ordersSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	const stockSheet = "Low Stock"
	if _, err := f.NewSheet(stockSheet); err != nil {
		return nil, err
	}
	stockHeaders := []string{"Variant ID", "Product ID", "SKU", "Quantity", "Threshold"}
	for i, h := range stockHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(stockSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for row, v := range lowStock {
		threshold := ""
		if v.LowStockThreshold != nil {
			threshold = fmt.Sprint(*v.LowStockThreshold)
		}
		values := []any{v.ID.String(), v.ProductID.String(), v.SKU, v.Quantity, threshold}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(stockSheet, cell, val); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
