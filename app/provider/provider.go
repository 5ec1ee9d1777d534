package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	TagTinkoff  = "tinkoff"
	TagYooMoney = "yoomoney-wallet"
	TagTelegram = "telegram"
)

// Status is the canonical payment status every provider vocabulary is mapped to.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

type PaymentRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	SuccessURL  string
	FailURL     string
}

type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// InvoiceData is handed to the messaging platform's sendInvoice call.
type InvoiceData struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Payload       string         `json:"payload"`
	ProviderToken string         `json:"provider_token"`
	Currency      string         `json:"currency"`
	Prices        []LabeledPrice `json:"prices"`
}

type PaymentResult struct {
	OrderID           string
	Provider          string
	PaymentURL        string
	ProviderPaymentID string
	Status            Status
	Invoice           *InvoiceData
	// QRURL is set for wallet transfers requested as a scannable code.
	QRURL string
}

// Outcome is the normalized result of a status check or a webhook.
// ProviderStatus keeps the provider's own value when Status could not map it.
type Outcome struct {
	OrderID        string
	PaymentID      string
	Amount         *decimal.Decimal
	Currency       string
	Status         Status
	ProviderStatus string
	Provider       string
	Event          string
	Processed      bool
	Note           string
	Raw            []byte
}

type Provider interface {
	Tag() string
	CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error)
	CheckStatus(ctx context.Context, orderID string) (*Outcome, error)
	// ParseWebhook never fails; unrecognized input yields an unprocessed unknown outcome.
	ParseWebhook(raw []byte) *Outcome
}

func unknownOutcome(tag string, raw []byte, note string) *Outcome {
	return &Outcome{
		Status:    StatusUnknown,
		Provider:  tag,
		Processed: false,
		Note:      note,
		Raw:       raw,
	}
}
