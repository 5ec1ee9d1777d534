package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

const orderColumns = `id, user_id, status, payment_status, payment_method, total_amount, order_details, created_at, updated_at`

type OrderFilter struct {
	Status        string
	PaymentStatus string
	Limit         int32
	Offset        int32
}

type OrderStats struct {
	Total   int64           `db:"total"`
	Pending int64           `db:"pending"`
	Paid    int64           `db:"paid"`
	Failed  int64           `db:"failed"`
	Revenue decimal.Decimal `db:"revenue"`
}

type orderRow struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	Status        string          `db:"status"`
	PaymentStatus string          `db:"payment_status"`
	PaymentMethod sql.NullString  `db:"payment_method"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	OrderDetails  []byte          `db:"order_details"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	details, err := json.Marshal(order.Details)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO orders (
			id, user_id, status, payment_status, payment_method, total_amount,
			order_details, contact_phone, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		emptyToNull(order.PaymentMethod),
		order.TotalAmount,
		string(details),
		NormalizePhone(order.Details.ContactInfo.Phone),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := r.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)

	var row orderRow
	if err := r.db.GetContext(ctx, &row, query, id); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return row.toEntity()
}

func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if strings.TrimSpace(filter.Status) != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if strings.TrimSpace(filter.PaymentStatus) != "" {
		conditions = append(conditions, "payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.selectOrders(ctx, r.db.Rebind(query), args...)
}

func (r *OrderRepository) FindByUserEmail(ctx context.Context, email string) ([]*entity.Order, error) {
	query := r.db.Rebind(`
		SELECT o.id, o.user_id, o.status, o.payment_status, o.payment_method, o.total_amount,
			o.order_details, o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE u.email = ?
		ORDER BY o.created_at DESC
	`)

	return r.selectOrders(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

// FindByPhone matches when either normalized number contains the other, so
// "+7 (999) 123-45-67" and "9991234567" find the same orders.
func (r *OrderRepository) FindByPhone(ctx context.Context, phone string) ([]*entity.Order, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return []*entity.Order{}, nil
	}

	query := r.db.Rebind(`
		SELECT ` + orderColumns + `
		FROM orders
		WHERE contact_phone IS NOT NULL
		  AND contact_phone <> ''
		  AND (contact_phone LIKE ? OR ? LIKE CONCAT('%', contact_phone, '%'))
		ORDER BY created_at DESC
	`)

	return r.selectOrders(ctx, query, "%"+normalized+"%", normalized)
}

func (r *OrderRepository) UpdatePaymentMethod(ctx context.Context, id, method string, at time.Time) error {
	query := r.db.Rebind(`UPDATE orders SET payment_method = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, method, at, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdatePaymentStatus writes a payment transition unless the stored order is
// already paid or refunded, or the write would pull a failed payment back to
// pending. It reports whether a row changed.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id, paymentStatus, status string, at time.Time) (bool, error) {
	query, args, err := sqlx.In(`
		UPDATE orders
		SET payment_status = ?, status = ?, updated_at = ?
		WHERE id = ?
		  AND payment_status NOT IN (?)
	`, paymentStatus, status, at, id, lockedPaymentStatuses(paymentStatus))
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// lockedPaymentStatuses lists the stored statuses a write to next must not replace.
func lockedPaymentStatuses(next string) []string {
	locked := []string{entity.PaymentStatusPaid, entity.PaymentStatusRefunded}
	if next == entity.PaymentStatusPending {
		locked = append(locked, entity.PaymentStatusFailed)
	}
	return locked
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	query := r.db.Rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Touch moves updated_at forward so a polled order goes to the back of the reconcile queue.
func (r *OrderRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`UPDATE orders SET updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM orders WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListForReconcile returns pending orders last touched before the cutoff whose
// payment method names one of the given providers.
func (r *OrderRepository) ListForReconcile(ctx context.Context, providers []string, before time.Time, limit int32) ([]*entity.Order, error) {
	if len(providers) == 0 {
		return []*entity.Order{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_status = ?
		  AND payment_method IN (?)
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, entity.PaymentStatusPending, providers, before, limit)
	if err != nil {
		return nil, err
	}

	return r.selectOrders(ctx, r.db.Rebind(query), args...)
}

func (r *OrderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := r.db.Rebind(`
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_status = ?
		  AND status = ?
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`)

	return r.selectOrders(ctx, query, entity.PaymentStatusPending, entity.OrderStatusPending, cutoff, limit)
}

func (r *OrderRepository) Stats(ctx context.Context) (*OrderStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS paid,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS revenue
		FROM orders
	`)

	stats := &OrderStats{}
	if err := r.db.GetContext(ctx, stats, query,
		entity.PaymentStatusPending,
		entity.PaymentStatusPaid,
		entity.PaymentStatusFailed,
		entity.PaymentStatusPaid,
	); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *OrderRepository) selectOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	orders := make([]*entity.Order, 0, len(rows))
	for i := range rows {
		order, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (row *orderRow) toEntity() (*entity.Order, error) {
	order := &entity.Order{
		ID:            row.ID,
		UserID:        row.UserID,
		Status:        row.Status,
		PaymentStatus: row.PaymentStatus,
		PaymentMethod: row.PaymentMethod.String,
		TotalAmount:   row.TotalAmount,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	if len(row.OrderDetails) > 0 {
		if err := json.Unmarshal(row.OrderDetails, &order.Details); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// NormalizePhone strips spaces, dashes and parentheses.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
