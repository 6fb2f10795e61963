// Package export renders customer spreadsheets and vendor job sheets.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"storybook-service/internal/models"
)

// XLSXContentType is the MIME type of the customer export.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const customersSheet = "Customers"

var customerColumns = []struct {
	header string
	width  float64
}{
	{"ID", 14},
	{"Type", 12},
	{"Email", 32},
	{"First Name", 18},
	{"Last Name", 18},
	{"Customer Since", 22},
	{"Orders", 10},
	{"Total Spent", 14},
	{"City", 18},
	{"Country", 10},
	{"Phone", 18},
}

// CustomersWorkbook builds a single-sheet workbook with one row per customer.
func CustomersWorkbook(customers []models.Customer) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", customersSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, column := range customerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(customersSheet, cell, column.header); err != nil {
			return nil, err
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(customersSheet, colName, colName, column.width); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(customerColumns), 1)
	if err := f.SetCellStyle(customersSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for r, c := range customers {
		kind := "registered"
		if c.IsGuest {
			kind = "guest"
		}
		spent, _ := decimal.NewFromString(c.TotalSpent)
		row := []interface{}{
			c.ID.String(),
			kind,
			c.Email,
			c.FirstName,
			c.LastName,
			c.DateCreated,
			c.OrdersCount,
			spent.InexactFloat64(),
			c.Billing.City,
			c.Billing.Country,
			c.Billing.Phone,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(customersSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(customersSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteCustomersXLSX streams the workbook to w.
func WriteCustomersXLSX(w io.Writer, customers []models.Customer) error {
	f, err := CustomersWorkbook(customers)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}
