package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookie/internal/domain/order"
)

const (
	orderColumns = `id, owner_id, owner_contact, items, subtotal, shipping, total, currency,
		shipping_address, payment_ref, status, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (id, owner_id, owner_contact, contact_key, items, subtotal,
		shipping, total, currency, shipping_address, payment_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + orderColumns

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text = '' OR status = $1)
		  AND ($2::text = '' OR owner_id = $2)
		  AND ($3::text = '' OR starts_with(lower(id), $3) OR strpos(contact_key, $3) > 0)
		ORDER BY created_at DESC, seq DESC
		LIMIT NULLIF($4::bigint, 0)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and the shipping address are stored as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create implements order.Repository.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal items")
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal address")
	}

	id := uuid.NewString()
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, createOrderSQL,
		id, o.OwnerID, o.OwnerContact, order.FoldSearch(o.OwnerContact), items, o.Subtotal, o.Shipping, o.Total,
		o.Currency, addr, o.PaymentRef, o.Status.String(),
	).Scan(&createdAt, &updatedAt); err != nil {
		return errors.Wrap(err, "insert order")
	}

	o.ID = id
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return nil
}

// Get implements order.Repository.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// UpdateStatus implements order.Repository.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateStatusSQL, id, status.String())
	if err != nil {
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	return &o, nil
}

// List implements order.Repository.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var status string
	if f.Status != 0 {
		status = f.Status.String()
	}
	rows, err := r.pool.Query(ctx, listOrdersSQL,
		status, f.OwnerID, order.FoldSearch(f.Search), int64(f.Limit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		addr   []byte
		status string
	)
	if err := row.Scan(
		&o.ID, &o.OwnerID, &o.OwnerContact, &items, &o.Subtotal, &o.Shipping, &o.Total, &o.Currency,
		&addr, &o.PaymentRef, &status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return order.Order{}, errors.Wrap(err, "scan order")
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, errors.Wrapf(err, "order %s items", o.ID)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return order.Order{}, errors.Wrapf(err, "order %s address", o.ID)
	}
	st, err := order.ParseStatus(status)
	if err != nil {
		return order.Order{}, errors.Wrapf(err, "order %s", o.ID)
	}
	o.Status = st
	return o, nil
}
