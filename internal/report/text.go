// Package report renders catalog snapshots as plain text.
package report

import (
	"fmt"
	"strings"

	"BookStore/internal/catalog"
)

const (
	salesHeader     = "Sales Report:"
	inventoryHeader = "Inventory Report:"
	emptyLine       = "- (none)"
	priceDecimals   = 2
)

// Text is a catalog.ReportFormatter producing one line per record.
type Text struct{}

var _ catalog.ReportFormatter = Text{}

func (Text) SalesReport(sales []catalog.Sale, titles map[int64]string) string {
	var sb strings.Builder
	sb.WriteString(salesHeader)
	sb.WriteByte('\n')

	if len(sales) == 0 {
		sb.WriteString(emptyLine)
		sb.WriteByte('\n')
		return sb.String()
	}

	for _, s := range sales {
		fmt.Fprintf(&sb, "- Book: %s, Quantity: %d, Price: %s, Total: %s\n",
			bookName(s.BookID, titles),
			s.Quantity,
			s.Price.StringFixed(priceDecimals),
			s.Total().StringFixed(priceDecimals),
		)
	}
	return sb.String()
}

func (Text) InventoryReport(books []catalog.Book) string {
	var sb strings.Builder
	sb.WriteString(inventoryHeader)
	sb.WriteByte('\n')

	if len(books) == 0 {
		sb.WriteString(emptyLine)
		sb.WriteByte('\n')
		return sb.String()
	}

	for _, b := range books {
		fmt.Fprintf(&sb, "- Book: %s, Quantity: %d\n", b.Title, b.Quantity)
	}
	return sb.String()
}

func bookName(id int64, titles map[int64]string) string {
	if t, ok := titles[id]; ok {
		return t
	}
	return fmt.Sprintf("Book #%d", id)
}
