package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportFormatter renders read-only snapshots of the catalog sequences.
// titles maps a book id to the title of its first inventory entry.
type ReportFormatter interface {
	SalesReport(sales []Sale, titles map[int64]string) string
	InventoryReport(books []Book) string
}

type Option func(*Manager)

// WithStrictStock makes RecordSale refuse to sell more than is on hand.
// By default quantity on hand may go negative.
func WithStrictStock(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// Manager owns the inventory and sales sequences.
//
// Operations on an unknown book id leave both sequences untouched and
// return ErrNotFound; callers that ignore the error get a silent no-op.
type Manager struct {
	mu        sync.RWMutex
	inventory []Book
	sales     []Sale

	formatter ReportFormatter
	strict    bool
	now       func() time.Time
	newID     func() string
}

func NewManager(formatter ReportFormatter, opts ...Option) *Manager {
	m := &Manager{
		formatter: formatter,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return "s_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddBook appends b to the inventory. Identifiers are not checked for
// uniqueness.
func (m *Manager) AddBook(b Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory = append(m.inventory, b)
	return nil
}

// UpdateBook replaces the first entry with the given id. The replacement
// keeps its own ID even if it differs from id.
func (m *Manager) UpdateBook(id int64, b Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	m.inventory[i] = b
	return nil
}

// DeleteBook removes every entry with the given id, keeping the order of
// the rest.
func (m *Manager) DeleteBook(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Book, 0, len(m.inventory))
	for _, b := range m.inventory {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(m.inventory) {
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	m.inventory = kept
	return nil
}

// RecordSale decrements the first matching book by quantity and appends a
// sale to the log.
func (m *Manager) RecordSale(id int64, quantity int, price decimal.Decimal) (Sale, error) {
	s, err := NewSale(id, quantity, price)
	if err != nil {
		return Sale{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return Sale{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if m.strict && m.inventory[i].Quantity < quantity {
		return Sale{}, fmt.Errorf("%w: id=%d on_hand=%d requested=%d",
			ErrInsufficientStock, id, m.inventory[i].Quantity, quantity)
	}

	m.inventory[i].Quantity -= quantity

	s.ID = m.newID()
	s.RecordedAt = m.now()
	m.sales = append(m.sales, s)
	return s, nil
}

// Revenue sums quantity × price over the sales log.
func (m *Manager) Revenue() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return revenueOf(m.sales)
}

func (m *Manager) SalesReport() string {
	m.mu.RLock()
	sales := cloneSales(m.sales)
	titles := make(map[int64]string, len(m.inventory))
	for _, b := range m.inventory {
		if _, seen := titles[b.ID]; !seen {
			titles[b.ID] = b.Title
		}
	}
	m.mu.RUnlock()

	return m.formatter.SalesReport(sales, titles)
}

func (m *Manager) InventoryReport() string {
	return m.formatter.InventoryReport(m.Books())
}

// Book returns the first entry with the given id.
func (m *Manager) Book(id int64) (Book, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return Book{}, false
	}
	return m.inventory[i], true
}

func (m *Manager) Books() []Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneBooks(m.inventory)
}

func (m *Manager) Sales() []Sale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSales(m.sales)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Books: cloneBooks(m.inventory), Sales: cloneSales(m.sales)}
}

// Restore replaces both sequences with copies of the snapshot's.
func (m *Manager) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory = cloneBooks(s.Books)
	m.sales = cloneSales(s.Sales)
}

func (m *Manager) indexOf(id int64) int {
	for i, b := range m.inventory {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func cloneBooks(in []Book) []Book {
	out := make([]Book, len(in))
	copy(out, in)
	return out
}

func cloneSales(in []Sale) []Sale {
	out := make([]Sale, len(in))
	copy(out, in)
	return out
}
