package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/config"
)

const (
	defaultCurrency  = "RUB"
	defaultBatchSize = int32(100)
)

type paymentOrderRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	UpdatePaymentMethod(ctx context.Context, id, method string, at time.Time) error
	UpdatePaymentStatus(ctx context.Context, id, paymentStatus, status string, at time.Time) (bool, error)
	Touch(ctx context.Context, id string, at time.Time) error
	ListForReconcile(ctx context.Context, providers []string, before time.Time, limit int32) ([]*entity.Order, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type CreatePaymentInput struct {
	Provider string
	// OrderID is set when the caller already stored the order; otherwise a fresh id is issued.
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	SuccessURL  string
	FailURL     string
}

type PaymentService struct {
	orderRepo   paymentOrderRepository
	eventRepo   paymentEventRepository
	providerReg *provider.Registry
	paymentsCfg config.PaymentsConfig
	logger      *logrus.Entry
}

func NewPaymentService(
	orderRepo paymentOrderRepository,
	eventRepo paymentEventRepository,
	providerReg *provider.Registry,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		eventRepo:   eventRepo,
		providerReg: providerReg,
		paymentsCfg: paymentsCfg,
		logger:      factory.NewModuleLogger("payment-service"),
	}
}

func (s *PaymentService) Providers() []string {
	return s.providerReg.Tags()
}

// CreatePayment validates the input fully before any provider is contacted.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*provider.PaymentResult, error) {
	adapter, err := s.providerReg.Get(in.Provider)
	if err != nil {
		return nil, ErrInvalidProvider
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, ErrInvalidAmountPrecision
	}

	description := strings.TrimSpace(in.Description)
	successURL := strings.TrimSpace(in.SuccessURL)
	failURL := strings.TrimSpace(in.FailURL)
	switch {
	case description == "":
		return nil, newValidationError("Description is required")
	case successURL == "":
		return nil, newValidationError("Success URL is required")
	case failURL == "":
		return nil, newValidationError("Fail URL is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency()
	}

	orderID := strings.TrimSpace(in.OrderID)
	var stored *entity.Order
	if orderID != "" {
		stored, err = s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if stored != nil && stored.IsPaid() {
			return nil, ErrOrderAlreadyPaid
		}
	} else {
		orderID = uuid.NewString()
	}

	result, err := adapter.CreatePayment(ctx, &provider.PaymentRequest{
		OrderID:     orderID,
		Amount:      in.Amount,
		Currency:    currency,
		Description: description,
		SuccessURL:  successURL,
		FailURL:     failURL,
	})
	if err != nil {
		s.logProviderError(err, adapter.Tag(), orderID)
		return nil, err
	}
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	if result.PaymentURL == "" && result.Invoice == nil {
		return nil, &provider.ProviderError{
			Provider: adapter.Tag(),
			Op:       "create_payment",
			Message:  "provider returned neither a payment url nor an invoice",
		}
	}

	now := time.Now().UTC()
	if stored != nil {
		if err := s.orderRepo.UpdatePaymentMethod(ctx, orderID, adapter.Tag(), now); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to record payment method")
		}
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		OrderID:           orderID,
		Provider:          adapter.Tag(),
		EventType:         "payment_created",
		NewPaymentStatus:  entity.PaymentStatusPending,
		ProviderPaymentID: optionalString(result.ProviderPaymentID),
		CreatedAt:         now,
	})

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"provider": adapter.Tag(),
		"amount":   in.Amount.StringFixed(2),
	}).Info("payment_created")

	return result, nil
}

// PayOrder starts a payment for a stored order using its total.
func (s *PaymentService) PayOrder(ctx context.Context, orderID, providerTag, successURL, failURL string) (*provider.PaymentResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	return s.CreatePayment(ctx, CreatePaymentInput{
		Provider:    providerTag,
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Currency:    s.defaultCurrency(),
		Description: "Order #" + shortOrderID(order.ID),
		SuccessURL:  successURL,
		FailURL:     failURL,
	})
}

func (s *PaymentService) CheckPaymentStatus(ctx context.Context, orderID, providerTag string) (*provider.Outcome, error) {
	adapter, err := s.providerReg.Get(providerTag)
	if err != nil {
		return nil, ErrInvalidProvider
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, newValidationError("Order id is required")
	}

	outcome, err := adapter.CheckStatus(ctx, orderID)
	if err != nil {
		s.logProviderError(err, adapter.Tag(), orderID)
		return nil, err
	}
	return outcome, nil
}

// HandleWebhook parses a notification into an outcome without touching the
// store. An empty hint falls back to payload sniffing.
func (s *PaymentService) HandleWebhook(_ context.Context, raw []byte, providerHint string) (*provider.Outcome, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, newValidationError("Webhook body is required")
	}
	if !json.Valid(raw) {
		return nil, newValidationError("Webhook body is not valid JSON")
	}

	tag := strings.TrimSpace(providerHint)
	if tag == "" {
		tag = provider.DetectProvider(raw)
	}

	adapter, err := s.providerReg.Get(tag)
	if err != nil {
		return nil, ErrInvalidProvider
	}

	return adapter.ParseWebhook(raw), nil
}

// ProcessWebhook parses the notification and applies it to the stored order.
func (s *PaymentService) ProcessWebhook(ctx context.Context, raw []byte, providerHint string) (*provider.Outcome, error) {
	outcome, err := s.HandleWebhook(ctx, raw, providerHint)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyOutcome(ctx, outcome, sourceWebhook); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ProcessBotPayment applies a successful_payment message the bot received
// over long polling.
func (s *PaymentService) ProcessBotPayment(ctx context.Context, raw []byte) (*provider.Outcome, error) {
	outcome, err := s.HandleWebhook(ctx, raw, provider.TagTelegram)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyOutcome(ctx, outcome, sourceBot); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (s *PaymentService) recordEvent(ctx context.Context, event *entity.PaymentEvent) {
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":   event.OrderID,
			"event_type": event.EventType,
		}).Warn("failed to record payment event")
	}
}

func (s *PaymentService) logProviderError(err error, tag, orderID string) {
	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"provider": tag,
		"order_id": orderID,
	})

	var ambiguous *provider.AmbiguousOutcomeError
	var providerErr *provider.ProviderError
	switch {
	case errors.As(err, &ambiguous):
		entry.WithFields(logrus.Fields{
			"request_id": ambiguous.RequestID,
			"body":       ambiguous.Body,
		}).Error("payment outcome is ambiguous, funds may have moved")
	case errors.As(err, &providerErr):
		entry.WithFields(logrus.Fields{
			"op":          providerErr.Op,
			"status_code": providerErr.StatusCode,
			"body":        providerErr.Body,
		}).Error("provider call failed")
	default:
		entry.Error("provider call failed")
	}
}

func (s *PaymentService) defaultCurrency() string {
	if s.paymentsCfg.DefaultCurrency != "" {
		return s.paymentsCfg.DefaultCurrency
	}
	return defaultCurrency
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func shortOrderID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
