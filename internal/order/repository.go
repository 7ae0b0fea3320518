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
	GetByGUID(ctx context.Context, guid uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	AppendNote(ctx context.Context, orderID int64, note string) error
	ListNotes(ctx context.Context, orderID int64) ([]Note, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) GetByGUID(ctx context.Context, guid uuid.UUID) (*Order, error) {
	const q = `
		SELECT
			o.id,
			o.order_guid,
			o.store_id,
			COALESCE(s.name, ''),
			o.order_total,
			o.refunded_amount,
			COALESCE(o.authorization_transaction_id, ''),
			o.payment_status,
			o.order_status,
			o.paid_at,
			o.created_at,
			o.updated_at
		FROM orders o
		LEFT JOIN stores s ON s.id = o.store_id
		WHERE o.order_guid = $1
	`

	var (
		o      Order
		paidAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, guid).Scan(
		&o.ID,
		&o.GUID,
		&o.StoreID,
		&o.StoreName,
		&o.Total,
		&o.RefundedAmount,
		&o.AuthorizationTransactionID,
		&o.PaymentStatus,
		&o.Status,
		&paidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by guid: %w", err)
	}

	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	return &o, nil
}

// Update writes the payment-owned columns. Writing the same values twice
// is harmless, which is what makes a replayed confirm callback safe.
func (r *repository) Update(ctx context.Context, o *Order) error {
	const q = `
		UPDATE orders
		SET authorization_transaction_id = $1,
			payment_status = $2,
			order_status = $3,
			paid_at = $4,
			refunded_amount = $5,
			updated_at = $6
		WHERE id = $7
	`

	var paidAt sql.NullTime
	if o.PaidAt != nil {
		paidAt = sql.NullTime{Time: *o.PaidAt, Valid: true}
	}

	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, q,
		o.AuthorizationTransactionID,
		o.PaymentStatus,
		o.Status,
		paidAt,
		o.RefundedAmount,
		now,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	o.UpdatedAt = now
	return nil
}

func (r *repository) AppendNote(ctx context.Context, orderID int64, note string) error {
	const q = `
		INSERT INTO order_notes (order_id, note, display_to_customer, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, q, orderID, note, false, r.now().UTC()); err != nil {
		return fmt.Errorf("append note to order %d: %w", orderID, err)
	}
	return nil
}

func (r *repository) ListNotes(ctx context.Context, orderID int64) ([]Note, error) {
	const q = `
		SELECT id, order_id, note, display_to_customer, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.DisplayToCustomer, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
