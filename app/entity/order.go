package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

type Order struct {
	ID     string
	UserID string

	Status        string
	PaymentStatus string
	PaymentMethod string

	TotalAmount decimal.Decimal

	Details OrderDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderDetails struct {
	Items       []OrderItem `json:"items"`
	ContactInfo ContactInfo `json:"contact_info"`
}

type OrderItem struct {
	Category string          `json:"category"`
	Item     string          `json:"item"`
	Price    decimal.Decimal `json:"price"`
}

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// IsPaid reports whether another payment attempt would double-charge.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}
