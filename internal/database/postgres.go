package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TemirB/merch-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id              BIGSERIAL PRIMARY KEY,
	paypal_order_id TEXT,
	name            TEXT,
	address         TEXT,
	items           TEXT,
	pieces          INTEGER,
	status          TEXT,
	created_at      TIMESTAMPTZ NOT NULL
)`

type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.OrderRepository = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

// Connect opens a pool with query tracing routed to logger and pings it.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newZapTracer(logger),
		LogLevel: tracelog.LogLevelDebug,
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("%w: create orders table: %v", domain.ErrStorage, err)
	}
	return nil
}

func (r *Postgres) Insert(ctx context.Context, o *domain.Order) error {
	items, err := domain.EncodeItems(o.Items)
	if err != nil {
		return err
	}
	createdAt := time.Now().UTC()

	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO orders (paypal_order_id, name, address, items, pieces, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, o.PayPalOrderID, o.Name, o.Address, items, o.Pieces, o.Status, createdAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("%w: insert order: %v", domain.ErrStorage, err)
	}

	o.ID = id
	o.CreatedAt = createdAt
	return nil
}

func (r *Postgres) ListAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, paypal_order_id, name, address, items, pieces, status, created_at
		FROM orders ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanPg(rows)
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

func (r *Postgres) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, paypal_order_id, name, address, items, pieces, status, created_at
		FROM orders WHERE id=$1
	`, id)
	o, err := scanPg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get order %d: %v", domain.ErrStorage, id, err)
	}
	return o, nil
}

func scanPg(row pgx.Row) (*domain.Order, error) {
	var (
		o                           domain.Order
		orderID, name, addr, status *string
		items                       *string
		pieces                      any
	)
	if err := row.Scan(&o.ID, &orderID, &name, &addr, &items, &pieces, &status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.PayPalOrderID = deref(orderID)
	o.Name = deref(name)
	o.Address = deref(addr)
	o.Items = domain.DecodeItems(deref(items))
	o.Status = deref(status)
	o.Pieces = coercePieces(pieces)
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
