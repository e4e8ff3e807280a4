package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	saveTimeout  = 5 * time.Second

	pgUndefinedTable = "42P01"
)

// Prices keep their full scale and quantities their full int range, so a
// loaded snapshot equals the one saved.
const schema = `
CREATE TABLE IF NOT EXISTS books (
	position   INTEGER PRIMARY KEY,
	id         BIGINT NOT NULL,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	quantity   BIGINT NOT NULL,
	price      NUMERIC NOT NULL
);

CREATE TABLE IF NOT EXISTS sales (
	position    INTEGER PRIMARY KEY,
	id          TEXT NOT NULL,
	book_id     BIGINT NOT NULL,
	quantity    BIGINT NOT NULL,
	price       NUMERIC NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

ALTER TABLE books
	ALTER COLUMN quantity TYPE BIGINT,
	ALTER COLUMN price TYPE NUMERIC;

ALTER TABLE sales
	ALTER COLUMN quantity TYPE BIGINT,
	ALTER COLUMN price TYPE NUMERIC;
`

// PostgresStore saves snapshots into the books and sales tables. Rows
// carry their sequence position so order and duplicate ids survive a
// round trip.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a database/sql handle using the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		books, err := s.loadBooks(ctx)
		if err != nil {
			return err
		}
		sales, err := s.loadSales(ctx)
		if err != nil {
			return err
		}
		snap = Snapshot{Books: books, Sales: sales}
		return nil
	})
	if isUndefinedTable(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *PostgresStore) loadBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, quantity, price
		FROM books
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Book, 0, 16)
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Quantity, &b.Price); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) loadSales(ctx context.Context) ([]Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, quantity, price, recorded_at
		FROM sales
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Sale, 0, 16)
	for rows.Next() {
		var sl Sale
		if err := rows.Scan(&sl.ID, &sl.BookID, &sl.Quantity, &sl.Price, &sl.RecordedAt); err != nil {
			return nil, err
		}
		sl.RecordedAt = sl.RecordedAt.UTC()
		out = append(out, sl)
	}
	return out, rows.Err()
}

// Save replaces both tables with the snapshot in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	return withTimeout(ctx, saveTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM sales`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
			return err
		}

		for i, b := range snap.Books {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO books (position, id, title, author, quantity, price)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, i, b.ID, b.Title, b.Author, b.Quantity, b.Price)
			if err != nil {
				return fmt.Errorf("insert book %d: %w", b.ID, err)
			}
		}

		for i, sl := range snap.Sales {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sales (position, id, book_id, quantity, price, recorded_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, i, sl.ID, sl.BookID, sl.Quantity, sl.Price, sl.RecordedAt)
			if err != nil {
				return fmt.Errorf("insert sale %s: %w", sl.ID, err)
			}
		}

		return tx.Commit()
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
