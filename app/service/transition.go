package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
)

const (
	sourceWebhook   = "webhook"
	sourceReconcile = "reconcile"
	sourceBot       = "bot"
)

const (
	resultApplied   = "applied"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultIgnored   = "ignored"
	resultNoOrder   = "order_missing"
)

type orderTransition struct {
	paymentStatus string
	orderStatus   string
}

var outcomeTransitions = map[provider.Status]orderTransition{
	provider.StatusPaid:    {paymentStatus: entity.PaymentStatusPaid, orderStatus: entity.OrderStatusProcessing},
	provider.StatusFailed:  {paymentStatus: entity.PaymentStatusFailed, orderStatus: entity.OrderStatusCancelled},
	provider.StatusPending: {paymentStatus: entity.PaymentStatusPending, orderStatus: entity.OrderStatusPending},
}

// ApplyOutcome moves the referenced order to the state an outcome implies.
// Replays are no-ops. Paid and refunded orders never change, and a failed
// order is not pulled back to pending.
func (s *PaymentService) ApplyOutcome(ctx context.Context, outcome *provider.Outcome, source string) error {
	if outcome == nil {
		return nil
	}

	now := time.Now().UTC()
	entry := s.logger.WithFields(logrus.Fields{
		"order_id":        outcome.OrderID,
		"provider":        outcome.Provider,
		"status":          string(outcome.Status),
		"provider_status": outcome.ProviderStatus,
		"source":          source,
	})

	transition, known := outcomeTransitions[outcome.Status]
	if !outcome.Processed || !known || outcome.OrderID == "" {
		entry.WithField("note", outcome.Note).Info("payment_outcome_ignored")
		if source != sourceReconcile && outcome.OrderID != "" {
			s.recordOutcome(ctx, outcome, source, resultIgnored, nil, string(outcome.Status), now)
		}
		return nil
	}

	order, err := s.orderRepo.FindByID(ctx, outcome.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		entry.Warn("payment outcome references an unknown order")
		if source != sourceReconcile {
			s.recordOutcome(ctx, outcome, source, resultNoOrder, nil, transition.paymentStatus, now)
		}
		return nil
	}

	current := order.PaymentStatus
	result := resultApplied
	switch {
	case current == transition.paymentStatus:
		result = resultDuplicate
	case current == entity.PaymentStatusPaid || current == entity.PaymentStatusRefunded:
		result = resultRejected
	case current == entity.PaymentStatusFailed && transition.paymentStatus == entity.PaymentStatusPending:
		result = resultRejected
	default:
		changed, err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, transition.paymentStatus, transition.orderStatus, now)
		if err != nil {
			return err
		}
		if !changed {
			result = resultRejected
		}
	}

	entry = entry.WithFields(logrus.Fields{
		"old_payment_status": current,
		"new_payment_status": transition.paymentStatus,
		"result":             result,
	})

	if result == resultApplied {
		entry.Info("payment_status_updated")
	} else {
		entry.Info("payment_status_unchanged")
	}

	if source == sourceReconcile && result != resultApplied {
		if err := s.orderRepo.Touch(ctx, order.ID, now); err != nil {
			entry.WithError(err).Warn("failed to touch order")
		}
		return nil
	}

	s.recordOutcome(ctx, outcome, source, result, &current, transition.paymentStatus, now)
	return nil
}

func (s *PaymentService) recordOutcome(
	ctx context.Context,
	outcome *provider.Outcome,
	source, result string,
	oldStatus *string,
	newStatus string,
	at time.Time,
) {
	event := &entity.PaymentEvent{
		OrderID:           outcome.OrderID,
		Provider:          outcome.Provider,
		EventType:         source + "_" + result,
		OldPaymentStatus:  oldStatus,
		NewPaymentStatus:  newStatus,
		ProviderPaymentID: optionalString(outcome.PaymentID),
		CreatedAt:         at,
	}
	if len(outcome.Raw) > 0 {
		payload := string(outcome.Raw)
		event.PayloadJSON = &payload
	}
	s.recordEvent(ctx, event)
}
