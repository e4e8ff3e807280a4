package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BookStore/internal/catalog"
)

func newMockStore(t *testing.T) (*catalog.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return catalog.NewPostgresStore(db), mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	snap := catalog.Snapshot{
		Books: []catalog.Book{
			{ID: 1, Title: "A", Author: "x", Quantity: 7, Price: price("49.99")},
			{ID: 1, Title: "A2", Author: "y", Quantity: 2, Price: price("9.50")},
		},
		Sales: []catalog.Sale{
			{ID: "s_1", BookID: 1, Quantity: 3, Price: price("49.99"), RecordedAt: at},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sales").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM books").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO books").
		WithArgs(0, int64(1), "A", "x", 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO books").
		WithArgs(1, int64(1), "A2", "y", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sales").
		WithArgs(0, "s_1", int64(1), 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_RollsBackOnInsertError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sales").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM books").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO books").WillReturnError(boom)
	mock.ExpectRollback()

	err := store.Save(context.Background(), catalog.Snapshot{
		Books: []catalog.Book{{ID: 1, Title: "A", Price: price("1.00")}},
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM books").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "quantity", "price"}).
			AddRow(int64(2), "B", "y", int64(3), "29.99").
			AddRow(int64(1), "A", "x", int64(7), "49.99"))
	mock.ExpectQuery("SELECT (.+) FROM sales").
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_id", "quantity", "price", "recorded_at"}).
			AddRow("s_1", int64(1), int64(3), "49.99", at))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []int64{2, 1}, ids(snap.Books))
	assert.True(t, snap.Books[1].Price.Equal(price("49.99")))
	require.Len(t, snap.Sales, 1)
	assert.Equal(t, "s_1", snap.Sales[0].ID)
	assert.Equal(t, 3, snap.Sales[0].Quantity)
	assert.Equal(t, at, snap.Sales[0].RecordedAt)
}

func TestPostgresStore_KeepsFullPriceScaleAndWideQuantities(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	const wide = 3_000_000_000

	snap := catalog.Snapshot{
		Books: []catalog.Book{{ID: 1, Title: "A", Author: "x", Quantity: wide, Price: price("0.005")}},
		Sales: []catalog.Sale{{ID: "s_1", BookID: 1, Quantity: 1, Price: price("12345678901.125"), RecordedAt: at}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sales").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM books").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO books").
		WithArgs(0, int64(1), "A", "x", wide, "0.005").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sales").
		WithArgs(0, "s_1", int64(1), 1, "12345678901.125", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, store.Save(context.Background(), snap))

	mock.ExpectQuery("SELECT (.+) FROM books").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "quantity", "price"}).
			AddRow(int64(1), "A", "x", int64(wide), "0.005"))
	mock.ExpectQuery("SELECT (.+) FROM sales").
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_id", "quantity", "price", "recorded_at"}).
			AddRow("s_1", int64(1), int64(1), "12345678901.125", at))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, got.Books, 1)
	assert.Equal(t, wide, got.Books[0].Quantity)
	assert.Equal(t, "0.005", got.Books[0].Price.String())
	require.Len(t, got.Sales, 1)
	assert.Equal(t, "12345678901.125", got.Sales[0].Price.String())
}

func TestPostgresStore_Load_MissingTablesIsEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM books").
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "books" does not exist`})

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Sales)
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS books \(.* quantity BIGINT NOT NULL, price NUMERIC NOT NULL \);` +
		`.*CREATE TABLE IF NOT EXISTS sales \(.* quantity BIGINT NOT NULL, price NUMERIC NOT NULL, recorded_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
