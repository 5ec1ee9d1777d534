package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

type paymentEventRow struct {
	ID                uint64         `db:"id"`
	OrderID           string         `db:"order_id"`
	Provider          string         `db:"provider"`
	EventType         string         `db:"event_type"`
	OldPaymentStatus  sql.NullString `db:"old_payment_status"`
	NewPaymentStatus  string         `db:"new_payment_status"`
	ProviderPaymentID sql.NullString `db:"provider_payment_id"`
	PayloadJSON       sql.NullString `db:"payload_json"`
	CreatedAt         time.Time      `db:"created_at"`
}

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			order_id, provider, event_type, old_payment_status, new_payment_status,
			provider_payment_id, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		event.OrderID,
		event.Provider,
		event.EventType,
		nullableStringValue(event.OldPaymentStatus),
		event.NewPaymentStatus,
		nullableStringValue(event.ProviderPaymentID),
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	}

	// pgx does not implement LastInsertId.
	if usesReturning(r.db) {
		return r.db.QueryRowxContext(ctx, r.db.Rebind(query+" RETURNING id"), args...).Scan(&event.ID)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *PaymentEventRepository) ListByOrder(ctx context.Context, orderID string) ([]*entity.PaymentEvent, error) {
	query := r.db.Rebind(`
		SELECT id, order_id, provider, event_type, old_payment_status, new_payment_status,
			provider_payment_id, payload_json, created_at
		FROM payment_events
		WHERE order_id = ?
		ORDER BY id ASC
	`)

	var rows []paymentEventRow
	if err := r.db.SelectContext(ctx, &rows, query, orderID); err != nil {
		return nil, err
	}

	events := make([]*entity.PaymentEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &entity.PaymentEvent{
			ID:                row.ID,
			OrderID:           row.OrderID,
			Provider:          row.Provider,
			EventType:         row.EventType,
			OldPaymentStatus:  stringPtrFromNull(row.OldPaymentStatus),
			NewPaymentStatus:  row.NewPaymentStatus,
			ProviderPaymentID: stringPtrFromNull(row.ProviderPaymentID),
			PayloadJSON:       stringPtrFromNull(row.PayloadJSON),
			CreatedAt:         row.CreatedAt,
		})
	}
	return events, nil
}
