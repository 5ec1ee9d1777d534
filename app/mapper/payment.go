package mapper

import (
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

func PaymentResultToResponse(item *provider.PaymentResult) *types.Payment {
	if item == nil {
		return nil
	}

	payment := &types.Payment{
		OrderID:    item.OrderID,
		Provider:   item.Provider,
		PaymentURL: item.PaymentURL,
		PaymentID:  item.ProviderPaymentID,
		Status:     string(item.Status),
		QRURL:      item.QRURL,
	}
	if item.Invoice != nil {
		prices := make([]types.LabeledPrice, 0, len(item.Invoice.Prices))
		for _, price := range item.Invoice.Prices {
			prices = append(prices, types.LabeledPrice{Label: price.Label, Amount: price.Amount})
		}
		payment.Invoice = &types.Invoice{
			Title:       item.Invoice.Title,
			Description: item.Invoice.Description,
			Payload:     item.Invoice.Payload,
			Currency:    item.Invoice.Currency,
			Prices:      prices,
		}
	}
	return payment
}

func OutcomeToResponse(item *provider.Outcome) *types.Outcome {
	if item == nil {
		return nil
	}
	var amount *float64
	if item.Amount != nil {
		value := item.Amount.Round(2).InexactFloat64()
		amount = &value
	}
	return &types.Outcome{
		OrderID:        item.OrderID,
		PaymentID:      item.PaymentID,
		Amount:         amount,
		Currency:       item.Currency,
		Status:         string(item.Status),
		ProviderStatus: item.ProviderStatus,
		Provider:       item.Provider,
		Processed:      item.Processed,
		Event:          item.Event,
		Note:           item.Note,
	}
}

func PaymentResultToWalletResponse(item *provider.PaymentResult) *types.WalletPaymentResponse {
	return &types.WalletPaymentResponse{
		Success:    true,
		PaymentURL: item.PaymentURL,
		PaymentID:  item.ProviderPaymentID,
		QRURL:      item.QRURL,
	}
}
