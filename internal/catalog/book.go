package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// NewBook builds an inventory record, rejecting negative quantity or price.
func NewBook(id int64, title, author string, quantity int, price decimal.Decimal) (Book, error) {
	b := Book{
		ID:       id,
		Title:    title,
		Author:   author,
		Quantity: quantity,
		Price:    price,
	}
	if err := b.Validate(); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (b Book) Validate() error {
	if b.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidBook, b.Quantity)
	}
	if b.Price.IsNegative() {
		return fmt.Errorf("%w: price %s is negative", ErrInvalidBook, b.Price)
	}
	return nil
}

// Sale is an entry of the sales log. BookID is a lookup key into the
// inventory; the referenced book may since have been deleted.
type Sale struct {
	ID         string          `json:"id"`
	BookID     int64           `json:"book_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func NewSale(bookID int64, quantity int, price decimal.Decimal) (Sale, error) {
	s := Sale{BookID: bookID, Quantity: quantity, Price: price}
	if err := s.Validate(); err != nil {
		return Sale{}, err
	}
	return s, nil
}

func (s Sale) Validate() error {
	if s.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidSale, s.Quantity)
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("%w: price %s is negative", ErrInvalidSale, s.Price)
	}
	return nil
}

// Total is quantity × price.
func (s Sale) Total() decimal.Decimal {
	return s.Price.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// Snapshot is a copy of both sequences owned by a Manager.
type Snapshot struct {
	Books []Book
	Sales []Sale
}

// Revenue sums quantity × price over the snapshot's sales.
func (s Snapshot) Revenue() decimal.Decimal {
	return revenueOf(s.Sales)
}

func revenueOf(sales []Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Total())
	}
	return total
}
