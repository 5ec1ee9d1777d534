package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
)

// RunReconcileBatch polls providers for pending orders that have not heard
// back in a while. Telegram is skipped since it has no status endpoint.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.paymentsCfg.ReconcileStaleAfter)

	tags := make([]string, 0, 2)
	for _, tag := range s.providerReg.Tags() {
		if tag != provider.TagTelegram {
			tags = append(tags, tag)
		}
	}

	items, err := s.orderRepo.ListForReconcile(ctx, tags, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		adapter, err := s.providerReg.Get(order.PaymentMethod)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		outcome, err := adapter.CheckStatus(ctx, order.ID)
		if err != nil {
			s.logProviderError(err, adapter.Tag(), order.ID)
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if outcome.OrderID == "" {
			outcome.OrderID = order.ID
		}

		if err := s.ApplyOutcome(ctx, outcome, sourceReconcile); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch fails orders whose payment never completed.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.paymentsCfg.PendingTimeout)
	items, err := s.orderRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil || order.PaymentStatus != entity.PaymentStatusPending {
			continue
		}

		changed, err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, entity.PaymentStatusFailed, entity.OrderStatusCancelled, now)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !changed {
			continue
		}

		oldStatus := order.PaymentStatus
		s.recordEvent(ctx, &entity.PaymentEvent{
			OrderID:          order.ID,
			Provider:         order.PaymentMethod,
			EventType:        "expired",
			OldPaymentStatus: &oldStatus,
			NewPaymentStatus: entity.PaymentStatusFailed,
			CreatedAt:        now,
		})

		s.logger.WithFields(logrus.Fields{
			"order_id":   order.ID,
			"created_at": order.CreatedAt,
		}).Info("payment_expired")
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
