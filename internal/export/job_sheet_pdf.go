package export

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"storybook-service/internal/models"
)

// JobSheet is everything a print vendor needs on paper for one order.
type JobSheet struct {
	Order      *models.Order
	Story      *models.Story // optional
	VendorName string
	Generated  time.Time
}

// JobSheetPDF renders the job sheet.
func JobSheetPDF(sheet JobSheet) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)

	addJobHeader(m, sheet)
	addJobAddresses(m, sheet.Order)
	addJobItems(m, sheet.Order)
	addJobAssets(m, sheet)
	addJobHistory(m, sheet.Order)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addJobHeader(m core.Maroto, sheet JobSheet) {
	order := sheet.Order
	vendor := sheet.VendorName
	if vendor == "" {
		vendor = "Unassigned"
	}

	m.AddRow(24,
		col.New(7).Add(
			text.New("PRINT JOB SHEET", props.Text{
				Size:  18,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
			text.New(fmt.Sprintf("Vendor: %s", vendor), props.Text{
				Size:  10,
				Top:   10,
				Align: align.Left,
			}),
		),
		col.New(5).Add(
			text.New(fmt.Sprintf("Order # %s", order.OrderNumber), props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
			text.New(fmt.Sprintf("Stage: %s", order.Stage.DisplayName()), props.Text{
				Size:  10,
				Top:   8,
				Align: align.Right,
			}),
			text.New(fmt.Sprintf("Generated: %s", sheet.Generated.Format("Jan 02, 2006 15:04")), props.Text{
				Size:  8,
				Top:   14,
				Align: align.Right,
			}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func formatAddress(a models.Address) string {
	parts := []string{}
	if name := a.FullName(); name != "" {
		parts = append(parts, name)
	}
	for _, p := range []string{a.Company, a.Address1, a.Address2} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.Postcode, a.City, a.State), " "))
	if cityLine != "" {
		parts = append(parts, cityLine)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func addJobAddresses(m core.Maroto, order *models.Order) {
	shipTo := formatAddress(order.Shipping)
	if shipTo == "" {
		shipTo = "No shipping address on file"
	}

	m.AddRow(28,
		col.New(6).Add(
			text.New("CUSTOMER:", props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
			text.New(order.CustomerName, props.Text{
				Size:  10,
				Top:   5,
				Align: align.Left,
			}),
			text.New(order.CustomerEmail, props.Text{
				Size:  9,
				Top:   10,
				Align: align.Left,
			}),
		),
		col.New(6).Add(
			text.New("SHIP TO:", props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
			text.New(shipTo, props.Text{
				Size:  9,
				Top:   5,
				Align: align.Left,
			}),
			text.New(order.Shipping.Phone, props.Text{
				Size:  9,
				Top:   18,
				Align: align.Left,
			}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func addJobItems(m core.Maroto, order *models.Order) {
	header := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}
	m.AddRow(8,
		col.New(7).Add(text.New("Item", header)),
		col.New(3).Add(text.New("SKU", header)),
		col.New(2).Add(text.New("Qty", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range order.LineItems {
		m.AddRow(7,
			col.New(7).Add(text.New(item.Name, props.Text{Size: 9, Align: align.Left})),
			col.New(3).Add(text.New(item.SKU, props.Text{Size: 9, Align: align.Left})),
			col.New(2).Add(text.New(fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right})),
		)
	}
	if len(order.LineItems) == 0 {
		m.AddRow(7, col.New(12).Add(text.New("No line items", props.Text{Size: 9, Style: fontstyle.Italic})))
	}
	m.AddRow(5, line.NewCol(12))
}

func addJobAssets(m core.Maroto, sheet JobSheet) {
	m.AddRow(8, col.New(12).Add(text.New("FILES", props.Text{Size: 10, Style: fontstyle.Bold})))

	rows := [][2]string{}
	add := func(label, key string) {
		if key != "" {
			rows = append(rows, [2]string{label, path.Base(key)})
		}
	}
	add("Interior PDF", sheet.Order.Assets.PDFKey)
	add("Cover", sheet.Order.Assets.CoverKey)
	for _, k := range sheet.Order.Assets.VoiceKeys {
		add("Voice recording", k)
	}
	if s := sheet.Story; s != nil {
		if sheet.Order.Assets.PDFKey == "" {
			add("Interior PDF", s.PDFKey)
		}
		if sheet.Order.Assets.CoverKey == "" {
			add("Cover", s.CoverImageKey)
		}
		m.AddRow(7, col.New(12).Add(text.New(
			fmt.Sprintf("Story: %s (for %s), %d pages", s.Title, s.ChildName, len(s.Pages)),
			props.Text{Size: 9},
		)))
	}

	for _, r := range rows {
		m.AddRow(6,
			col.New(4).Add(text.New(r[0], props.Text{Size: 9})),
			col.New(8).Add(text.New(r[1], props.Text{Size: 9})),
		)
	}
	if len(rows) == 0 {
		m.AddRow(6, col.New(12).Add(text.New("No files attached yet", props.Text{Size: 9, Style: fontstyle.Italic})))
	}

	if sheet.Order.Notes != "" {
		m.AddRow(12, col.New(12).Add(
			text.New("Notes: "+sheet.Order.Notes, props.Text{Size: 9, Top: 3}),
		))
	}
	m.AddRow(5, line.NewCol(12))
}

func addJobHistory(m core.Maroto, order *models.Order) {
	if len(order.StageHistory) == 0 {
		return
	}
	m.AddRow(8, col.New(12).Add(text.New("HISTORY", props.Text{Size: 10, Style: fontstyle.Bold})))
	for _, h := range order.StageHistory {
		m.AddRow(6,
			col.New(4).Add(text.New(h.At.Format("Jan 02, 2006 15:04"), props.Text{Size: 8})),
			col.New(4).Add(text.New(fmt.Sprintf("%s -> %s", h.From.DisplayName(), h.To.DisplayName()), props.Text{Size: 8})),
			col.New(4).Add(text.New(h.Note, props.Text{Size: 8})),
		)
	}
}
