package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BookStore/internal/catalog"
)

type flakyStore struct {
	*catalog.MemStore
	saveErr error
	saves   int
}

func (s *flakyStore) Save(ctx context.Context, snap catalog.Snapshot) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemStore.Save(ctx, snap)
}

func newService(t *testing.T, store catalog.Store, opts ...catalog.Option) (*catalog.Service, *catalog.Metrics) {
	t.Helper()
	metrics := catalog.NewMetrics(prometheus.NewRegistry())
	return catalog.NewService(newManager(t, opts...), store, zap.NewNop(), metrics), metrics
}

func TestService_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemStore()
	svc, metrics := newService(t, store)

	require.NoError(t, svc.AddBook(ctx, mustBook(t, 1, "A", 10, "49.99")))
	require.NoError(t, svc.AddBook(ctx, mustBook(t, 2, "B", 5, "29.99")))
	_, err := svc.RecordSale(ctx, 1, 3, price("49.99"))
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, 2, 2, price("29.99"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBook(ctx, 2))

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(snap.Books))
	assert.Equal(t, 7, snap.Books[0].Quantity)
	assert.Len(t, snap.Sales, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.BooksAdded))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SalesRecorded))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.UnitsSold))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InventorySize))
	assert.InDelta(t, 209.95, testutil.ToFloat64(metrics.Revenue), 1e-9)
}

func TestService_RollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemStore: catalog.NewMemStore()}
	svc, metrics := newService(t, store)

	require.NoError(t, svc.AddBook(ctx, mustBook(t, 1, "A", 10, "1.00")))

	store.saveErr = errors.New("disk full")
	_, err := svc.RecordSale(ctx, 1, 4, price("1.00"))

	assert.ErrorIs(t, err, catalog.ErrPersist)
	assert.Empty(t, svc.Sales())
	b, _ := svc.Book(1)
	assert.Equal(t, 10, b.Quantity)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rejected.WithLabelValues("record_sale", "persist")))
}

func TestService_RejectedOperationsSkipSave(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemStore: catalog.NewMemStore()}
	svc, metrics := newService(t, store, catalog.WithStrictStock(true))

	require.NoError(t, svc.AddBook(ctx, mustBook(t, 1, "A", 1, "1.00")))
	saves := store.saves

	assert.ErrorIs(t, svc.UpdateBook(ctx, 9, mustBook(t, 9, "Z", 1, "1.00")), catalog.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBook(ctx, 9), catalog.ErrNotFound)
	_, err := svc.RecordSale(ctx, 1, 2, price("1.00"))
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	assert.Equal(t, saves, store.saves)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rejected.WithLabelValues("update_book", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rejected.WithLabelValues("delete_book", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rejected.WithLabelValues("record_sale", "insufficient_stock")))
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSeededMemStore(
		mustBook(t, 1, "Harry Potter", 10, "49.99"),
		mustBook(t, 2, "1984", 20, "19.99"),
	)
	svc, metrics := newService(t, store)

	require.NoError(t, svc.Load(ctx))

	assert.Equal(t, []int64{1, 2}, ids(svc.Books()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.InventorySize))
}

func TestService_NilMetricsAndLogger(t *testing.T) {
	svc := catalog.NewService(newManager(t), catalog.NewMemStore(), nil, nil)

	require.NoError(t, svc.AddBook(context.Background(), mustBook(t, 1, "A", 1, "1.00")))
	assert.Len(t, svc.Books(), 1)
}
