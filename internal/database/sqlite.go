package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TemirB/merch-checkout/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	paypal_order_id TEXT,
	name TEXT,
	address TEXT,
	items TEXT,
	pieces INTEGER,
	status TEXT,
	created_at TEXT
)`

// Layouts accepted when reading created_at. The second one matches rows
// written without a zone offset by older tooling sharing the same file.
var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

// SQLite stores order records in a local database file.
type SQLite struct {
	db *sql.DB
}

var _ domain.OrderRepository = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("%w: create orders table: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *SQLite) Insert(ctx context.Context, o *domain.Order) error {
	items, err := domain.EncodeItems(o.Items)
	if err != nil {
		return err
	}
	createdAt := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (paypal_order_id, name, address, items, pieces, status, created_at) VALUES (?,?,?,?,?,?,?)`,
		o.PayPalOrderID, o.Name, o.Address, items, o.Pieces, o.Status, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert order: %v", domain.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: insert order: %v", domain.ErrStorage, err)
	}

	o.ID = id
	o.CreatedAt = createdAt
	return nil
}

func (s *SQLite) ListAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paypal_order_id, name, address, items, pieces, status, created_at FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan order: %v", domain.ErrStorage, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrStorage, err)
	}
	return orders, nil
}

func (s *SQLite) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, paypal_order_id, name, address, items, pieces, status, created_at FROM orders WHERE id=?`, id)
	o, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get order %d: %v", domain.ErrStorage, id, err)
	}
	return o, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*domain.Order, error) {
	var (
		o                                      domain.Order
		orderID, name, addr, items, status, ts sql.NullString
		pieces                                 any
	)
	if err := row.Scan(&o.ID, &orderID, &name, &addr, &items, &pieces, &status, &ts); err != nil {
		return nil, err
	}
	o.PayPalOrderID = orderID.String
	o.Name = name.String
	o.Address = addr.String
	o.Items = domain.DecodeItems(items.String)
	o.Pieces = coercePieces(pieces)
	o.Status = status.String
	o.CreatedAt = parseCreatedAt(ts.String)
	return &o, nil
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
