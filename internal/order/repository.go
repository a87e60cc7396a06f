package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByTxRef(ctx context.Context, txRef string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	SetTxRef(ctx context.Context, orderID, txRef string) error
	// MarkPaid sets paymentStatus=PAID and status=CONFIRMED in one
	// conditional write. It reports whether the row actually changed, so
	// concurrent webhook/poll callers settle an order exactly once.
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	// MarkPaymentFailed records a negative outcome without touching the
	// fulfillment status. It never downgrades a PAID order.
	MarkPaymentFailed(ctx context.Context, orderID string) (bool, error)
	UpdateStatus(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total, status, payment_status, chapa_tx_ref,
                             shipping_name, shipping_email, shipping_phone, shipping_address,
                             created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.UserID, o.Total, o.Status, o.PaymentStatus, o.ChapaTxRef,
		o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price)
             VALUES ($1, $2, $3, $4, $5)`,
			o.Items[i].ID, o.ID, o.Items[i].ProductID, o.Items[i].Quantity, o.Items[i].Price,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, total, status, payment_status, chapa_tx_ref,
       shipping_name, shipping_email, shipping_phone, shipping_address,
       created_at, updated_at`

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	// id is a uuid column; keys arrive from path params and raw payment
	// references, and a non-uuid key can never match
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *repo) GetByTxRef(ctx context.Context, txRef string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE chapa_tx_ref = $1`, txRef)
}

func (r *repo) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentStatus, &o.ChapaTxRef,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, quantity, price FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
}

func (r *repo) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentStatus, &o.ChapaTxRef,
			&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *repo) SetTxRef(ctx context.Context, orderID, txRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET chapa_tx_ref = $2, updated_at = NOW() WHERE id = $1`,
		orderID, txRef)
	if err != nil {
		return fmt.Errorf("set tx_ref: %w", err)
	}
	return nil
}

func (r *repo) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status <> $2
	`, orderID, PaymentPaid, StatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark paid rows: %w", err)
	}
	return n > 0, nil
}

func (r *repo) MarkPaymentFailed(ctx context.Context, orderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status <> $3
	`, orderID, PaymentFailed, PaymentPaid)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment failed rows: %w", err)
	}
	return n > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = COALESCE($2, status),
		    payment_status = COALESCE($3, payment_status),
		    updated_at = NOW()
		WHERE id = $1
	`, orderID, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
