package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
)

type WalletPaymentInput struct {
	OrderID string
	// Amount falls back to the stored order total when zero.
	Amount      decimal.Decimal
	Currency    string
	Description string
	SuccessURL  string
	FailURL     string
}

// CreateWalletLink starts a wallet transfer and returns the payment link.
func (s *PaymentService) CreateWalletLink(ctx context.Context, in WalletPaymentInput) (*provider.PaymentResult, error) {
	return s.createWalletPayment(ctx, in)
}

// CreateWalletQR starts a wallet transfer and adds the quickpay link to render as a QR code.
func (s *PaymentService) CreateWalletQR(ctx context.Context, in WalletPaymentInput) (*provider.PaymentResult, error) {
	result, err := s.createWalletPayment(ctx, in)
	if err != nil {
		return nil, err
	}
	result.QRURL = provider.YooMoneyQRURL(result.ProviderPaymentID)
	return result, nil
}

func (s *PaymentService) createWalletPayment(ctx context.Context, in WalletPaymentInput) (*provider.PaymentResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return nil, newValidationError("Order id is required")
	}

	amount := in.Amount
	if amount.IsZero() {
		order, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, ErrInvalidAmount
		}
		amount = order.TotalAmount
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Оплата заказа " + shortOrderID(orderID)
	}

	return s.CreatePayment(ctx, CreatePaymentInput{
		Provider:    provider.TagYooMoney,
		OrderID:     orderID,
		Amount:      amount,
		Currency:    in.Currency,
		Description: description,
		SuccessURL:  in.SuccessURL,
		FailURL:     in.FailURL,
	})
}
