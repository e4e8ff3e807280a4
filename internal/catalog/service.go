package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrPersist = errors.New("persist catalog")

// Service persists a Manager's state through a Store after every
// successful mutation. If saving fails the Manager is rolled back to the
// state it had before the mutation.
type Service struct {
	mu      sync.Mutex
	catalog *Manager
	store   Store
	log     *zap.Logger
	metrics *Metrics
}

func NewService(m *Manager, store Store, log *zap.Logger, metrics *Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: m, store: store, log: log, metrics: metrics}
}

// Load replaces the Manager's state with the Store's last snapshot.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.catalog.Restore(snap)
	s.observe()

	s.log.Info("catalog loaded",
		zap.Int("books", len(snap.Books)),
		zap.Int("sales", len(snap.Sales)),
	)
	return nil
}

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *Service) AddBook(ctx context.Context, b Book) error {
	err := s.mutate(ctx, "add_book", func() error { return s.catalog.AddBook(b) })
	if err != nil {
		return err
	}
	s.metrics.bookAdded()
	s.log.Info("book added", zap.Int64("book_id", b.ID), zap.String("title", b.Title))
	return nil
}

func (s *Service) UpdateBook(ctx context.Context, id int64, b Book) error {
	err := s.mutate(ctx, "update_book", func() error { return s.catalog.UpdateBook(id, b) })
	if err != nil {
		return err
	}
	s.log.Info("book updated", zap.Int64("book_id", id), zap.Int64("new_id", b.ID))
	return nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	err := s.mutate(ctx, "delete_book", func() error { return s.catalog.DeleteBook(id) })
	if err != nil {
		return err
	}
	s.log.Info("book deleted", zap.Int64("book_id", id))
	return nil
}

func (s *Service) RecordSale(ctx context.Context, id int64, quantity int, price decimal.Decimal) (Sale, error) {
	var sale Sale
	err := s.mutate(ctx, "record_sale", func() error {
		var err error
		sale, err = s.catalog.RecordSale(id, quantity, price)
		return err
	})
	if err != nil {
		return Sale{}, err
	}
	s.metrics.saleRecorded(sale)
	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.Int64("book_id", id),
		zap.Int("quantity", quantity),
		zap.String("price", price.String()),
	)
	return sale, nil
}

func (s *Service) Books() []Book { return s.catalog.Books() }
func (s *Service) Book(id int64) (Book, bool) { return s.catalog.Book(id) }
func (s *Service) Sales() []Sale { return s.catalog.Sales() }
func (s *Service) Revenue() decimal.Decimal { return s.catalog.Revenue() }
func (s *Service) Snapshot() Snapshot { return s.catalog.Snapshot() }
func (s *Service) SalesReport() string { return s.catalog.SalesReport() }
func (s *Service) InventoryReport() string { return s.catalog.InventoryReport() }

func (s *Service) mutate(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.catalog.Snapshot()
	if err := fn(); err != nil {
		s.metrics.rejected(op, err)
		s.log.Debug("catalog operation rejected", zap.String("op", op), zap.Error(err))
		return err
	}

	if err := s.store.Save(ctx, s.catalog.Snapshot()); err != nil {
		s.catalog.Restore(before)
		s.metrics.rejected(op, ErrPersist)
		s.log.Error("catalog save failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.observe()
	return nil
}

func (s *Service) observe() {
	s.metrics.observe(s.catalog.Snapshot(), s.catalog.Revenue().InexactFloat64())
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidBook), errors.Is(err, ErrInvalidSale):
		return "invalid"
	case errors.Is(err, ErrPersist):
		return "persist"
	default:
		return "other"
	}
}
