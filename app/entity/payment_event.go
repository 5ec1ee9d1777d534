package entity

import "time"

type PaymentEvent struct {
	ID uint64

	OrderID  string
	Provider string

	EventType string

	OldPaymentStatus *string
	NewPaymentStatus string

	ProviderPaymentID *string
	PayloadJSON       *string

	CreatedAt time.Time
}
