package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Provider    string          `json:"provider"`
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SuccessURL  string          `json:"successUrl"`
	FailURL     string          `json:"failUrl"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Provider = strings.TrimSpace(body.Provider)
	body.OrderID = strings.TrimSpace(body.OrderID)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Description = strings.TrimSpace(body.Description)
	body.SuccessURL = strings.TrimSpace(body.SuccessURL)
	body.FailURL = strings.TrimSpace(body.FailURL)

	return &body, nil
}

// Validate checks shape only; provider, amount and required fields are
// enforced by the payment service so every entry point shares the same rules.
func (r *CreatePaymentRequest) Validate() error {
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type PaymentStatusRequest struct {
	OrderID  string
	Provider string
}

func NewPaymentStatusRequestFromContext(ctx echo.Context) *PaymentStatusRequest {
	return &PaymentStatusRequest{
		OrderID:  strings.TrimSpace(ctx.Param("orderId")),
		Provider: strings.TrimSpace(ctx.Param("provider")),
	}
}

type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type Invoice struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Payload     string         `json:"payload"`
	Currency    string         `json:"currency"`
	Prices      []LabeledPrice `json:"prices"`
}

type Payment struct {
	OrderID    string   `json:"orderId"`
	Provider   string   `json:"provider"`
	PaymentURL string   `json:"paymentUrl,omitempty"`
	PaymentID  string   `json:"paymentId,omitempty"`
	Status     string   `json:"status"`
	QRURL      string   `json:"qrUrl,omitempty"`
	Invoice    *Invoice `json:"invoice,omitempty"`
}

type PaymentEnvelopeResponse struct {
	Success bool     `json:"success"`
	Payment *Payment `json:"payment"`
}

// Outcome is the canonical webhook and status-check result.
type Outcome struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
	// Amount is in major units and travels as a JSON number.
	Amount         *float64 `json:"amount,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Status         string   `json:"status"`
	ProviderStatus string   `json:"providerStatus,omitempty"`
	Provider       string   `json:"provider"`
	Processed      bool     `json:"processed"`
	Event          string   `json:"event,omitempty"`
	Note           string   `json:"note,omitempty"`
}

type PaymentStatusResponse struct {
	Success bool     `json:"success"`
	Status  *Outcome `json:"status"`
}

type WebhookResponse struct {
	Success bool     `json:"success"`
	Result  *Outcome `json:"result"`
}

type ProvidersResponse struct {
	Success   bool     `json:"success"`
	Providers []string `json:"providers"`
}

type WalletPaymentRequest struct {
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func NewWalletPaymentRequestFromContext(ctx echo.Context) (*WalletPaymentRequest, error) {
	var body WalletPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderID = strings.TrimSpace(body.OrderID)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Description = strings.TrimSpace(body.Description)

	return &body, nil
}

func (r *WalletPaymentRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("orderId is required")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type WalletPaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
	QRURL      string `json:"qrUrl,omitempty"`
}
