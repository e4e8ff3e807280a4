// Command bookdemo replays a fixed bookstore session against an in-memory
// catalog and prints revenue and both reports.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"BookStore/internal/catalog"
	"BookStore/internal/report"
	"BookStore/pkg/kit"
)

func main() {
	log, err := kit.NewLogger("bookdemo", "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(os.Stdout, log); err != nil {
		log.Fatal("demo failed", zap.Error(err))
	}
}

func run(w io.Writer, log *zap.Logger) error {
	m := catalog.NewManager(report.Text{})

	for _, b := range catalog.DemoBooks() {
		if err := m.AddBook(b); err != nil {
			return fmt.Errorf("add book %d: %w", b.ID, err)
		}
	}

	gatsby := catalog.Book{
		ID:       2,
		Title:    "The Great Gatsby",
		Author:   "F. Scott Fitzgerald",
		Quantity: 8,
		Price:    decimal.RequireFromString("39.99"),
	}
	if err := m.UpdateBook(2, gatsby); err != nil {
		return fmt.Errorf("update book 2: %w", err)
	}

	sales := []struct {
		id    int64
		qty   int
		price string
	}{
		{1, 3, "49.99"},
		{2, 2, "39.99"},
	}
	for _, s := range sales {
		sale, err := m.RecordSale(s.id, s.qty, decimal.RequireFromString(s.price))
		if err != nil {
			return fmt.Errorf("record sale for book %d: %w", s.id, err)
		}
		log.Debug("sale recorded", zap.String("sale_id", sale.ID), zap.Int64("book_id", sale.BookID))
	}

	_, err := fmt.Fprintf(w, "Total revenue: %s\n\n%s\n%s", m.Revenue().StringFixed(2), m.SalesReport(), m.InventoryReport())
	return err
}
