package provider

import (
	"context"
	"fmt"
	"strings"
)

const telegramPriceLabel = "Services"

type TelegramConfig struct {
	PaymentProviderToken string
}

// TelegramProvider assembles invoices for Telegram Payments. The bot sends
// them, so creation makes no outbound call and status arrives via webhooks only.
type TelegramProvider struct {
	cfg TelegramConfig
}

func NewTelegramProvider(cfg TelegramConfig) (*TelegramProvider, error) {
	cfg.PaymentProviderToken = strings.TrimSpace(cfg.PaymentProviderToken)
	if cfg.PaymentProviderToken == "" {
		return nil, fmt.Errorf("%w: telegram payment provider token is required", ErrMissingCredentials)
	}
	return &TelegramProvider{cfg: cfg}, nil
}

func (p *TelegramProvider) Tag() string {
	return TagTelegram
}

func (p *TelegramProvider) CreatePayment(_ context.Context, req *PaymentRequest) (*PaymentResult, error) {
	shortID := req.OrderID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	return &PaymentResult{
		OrderID:  req.OrderID,
		Provider: TagTelegram,
		Status:   StatusPending,
		Invoice: &InvoiceData{
			Title:         req.Description,
			Description:   "Order #" + shortID,
			Payload:       req.OrderID,
			ProviderToken: p.cfg.PaymentProviderToken,
			Currency:      req.Currency,
			Prices: []LabeledPrice{{
				Label:  telegramPriceLabel,
				Amount: minorUnits(req.Amount),
			}},
		},
	}, nil
}

func (p *TelegramProvider) CheckStatus(_ context.Context, orderID string) (*Outcome, error) {
	return &Outcome{
		OrderID:   orderID,
		Status:    StatusPending,
		Provider:  TagTelegram,
		Processed: false,
		Note:      "telegram payments are tracked via webhooks only",
	}, nil
}

// ParseWebhook accepts a bare successful_payment object holder, a message, or a full update.
func (p *TelegramProvider) ParseWebhook(raw []byte) *Outcome {
	obj, ok := decodeObject(raw)
	if !ok {
		return unknownOutcome(TagTelegram, raw, "payload is not a JSON object")
	}

	payment := findSuccessfulPayment(obj)
	if payment == nil {
		outcome := unknownOutcome(TagTelegram, raw, "no successful_payment in payload")
		outcome.OrderID = stringField(obj, "invoice_payload")
		return outcome
	}

	orderID := stringField(payment, "invoice_payload")
	if orderID == "" {
		return unknownOutcome(TagTelegram, raw, "successful_payment has no invoice_payload")
	}

	return &Outcome{
		OrderID:        orderID,
		PaymentID:      stringField(payment, "telegram_payment_charge_id"),
		Amount:         fromMinorUnits(decimalField(payment, "total_amount")),
		Currency:       stringField(payment, "currency"),
		Status:         StatusPaid,
		ProviderStatus: "successful_payment",
		Provider:       TagTelegram,
		Event:          "successful_payment",
		Processed:      true,
		Raw:            raw,
	}
}

func findSuccessfulPayment(obj map[string]any) map[string]any {
	if payment := objectField(obj, "successful_payment"); payment != nil {
		return payment
	}
	if message := objectField(obj, "message"); message != nil {
		return objectField(message, "successful_payment")
	}
	return nil
}
