package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/google/uuid"
)

const (
	notificationStatusSuccess = "success"
	notificationStatusPending = "pending"
	metadataKindDeveloper     = "developer"
)

// RecordCardPayment applies a verified card-aggregator notification.
func (s *Service) RecordCardPayment(ctx context.Context, n contracts.PaymentNotification) (IngestResult, error) {
	return s.recordPayment(ctx, domain.ChannelCardAggregator, n)
}

// RegisterPendingPayment stores checkout metadata for a push payment so its
// callback can be attributed after a restart.
func (s *Service) RegisterPendingPayment(ctx context.Context, actor Actor, input RegisterPendingInput) (ports.PendingPayment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ports.PendingPayment{}, domain.ErrUnauthorized
	}
	if !actor.privileged() && actor.Role != RoleSystem {
		return ports.PendingPayment{}, domain.ErrForbidden
	}
	input.CheckoutRef = strings.TrimSpace(input.CheckoutRef)
	if input.CheckoutRef == "" {
		return ports.PendingPayment{}, fmt.Errorf("%w: missing checkout_ref", domain.ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return ports.PendingPayment{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return ports.PendingPayment{}, err
	}
	now := s.nowFn()
	if input.Kind != metadataKindDeveloper {
		event, err := s.events.Get(ctx, strings.TrimSpace(input.EventID))
		if err != nil {
			return ports.PendingPayment{}, err
		}
		if !event.AcceptsContributions(now) {
			return ports.PendingPayment{}, fmt.Errorf("%w: event %s is %s", domain.ErrEventClosed, event.EventID, event.Status)
		}
		if event.Currency != currency {
			return ports.PendingPayment{}, fmt.Errorf("%w: event %s accepts %s", domain.ErrInvalidInput, event.EventID, event.Currency)
		}
	}
	payment := ports.PendingPayment{
		CheckoutRef:  input.CheckoutRef,
		EventID:      strings.TrimSpace(input.EventID),
		Kind:         input.Kind,
		PayerName:    strings.TrimSpace(input.PayerName),
		PayerEmail:   strings.TrimSpace(input.PayerEmail),
		Message:      strings.TrimSpace(input.Message),
		Amount:       input.Amount,
		Currency:     currency,
		RegisteredAt: now,
	}
	if err := s.pending.Put(ctx, payment, s.cfg.PendingPaymentTTL); err != nil {
		return ports.PendingPayment{}, err
	}
	return payment, nil
}

// RecordPushCallback resolves a mobile-money push result against its pending
// checkout and records the gift. Failed pushes are acknowledged and ignored.
// The callback amount must match what was registered for the checkout.
func (s *Service) RecordPushCallback(ctx context.Context, cb contracts.PushCallback) (IngestResult, error) {
	if strings.TrimSpace(cb.CheckoutRef) == "" {
		return IngestResult{}, fmt.Errorf("%w: missing checkout_ref", domain.ErrInvalidInput)
	}
	if cb.ResultCode != 0 {
		s.logger.InfoContext(ctx, "push payment not completed",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "record_push_callback",
			"outcome", "ignored",
			"checkout_ref", cb.CheckoutRef,
			"result_code", cb.ResultCode,
			"result_desc", cb.ResultDesc,
		)
		return IngestResult{Ignored: true}, nil
	}
	pending, err := s.pending.Get(ctx, cb.CheckoutRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "push payment has no pending checkout",
				"module", "application.reconciler",
				"layer", "application",
				"operation", "record_push_callback",
				"outcome", "failure",
				"checkout_ref", cb.CheckoutRef,
				"transaction_ref", cb.TransactionRef,
				"amount", cb.Amount,
			)
		}
		return IngestResult{}, err
	}
	if cb.Amount > 0 && cb.Amount != pending.Amount {
		s.logger.ErrorContext(ctx, "push amount differs from registered checkout",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "record_push_callback",
			"outcome", "rejected",
			"checkout_ref", cb.CheckoutRef,
			"transaction_ref", cb.TransactionRef,
			"event_id", pending.EventID,
			"amount", cb.Amount,
			"registered_amount", pending.Amount,
		)
		return IngestResult{}, fmt.Errorf("%w: push amount %d does not match checkout amount %d", domain.ErrInvalidInput, cb.Amount, pending.Amount)
	}
	return s.recordPayment(ctx, domain.ChannelInstantPush, contracts.PaymentNotification{
		TransactionRef: cb.TransactionRef,
		GrossAmount:    pending.Amount,
		Currency:       pending.Currency,
		Status:         notificationStatusSuccess,
		Metadata: contracts.PaymentMetadata{
			EventID:    pending.EventID,
			Kind:       pending.Kind,
			PayerName:  pending.PayerName,
			PayerEmail: pending.PayerEmail,
			Message:    pending.Message,
		},
	})
}

func (s *Service) recordPayment(ctx context.Context, channel domain.Channel, n contracts.PaymentNotification) (IngestResult, error) {
	ref := strings.TrimSpace(n.TransactionRef)
	if ref == "" {
		return IngestResult{}, fmt.Errorf("%w: missing transaction_ref", domain.ErrInvalidInput)
	}
	if n.GrossAmount <= 0 {
		return IngestResult{}, fmt.Errorf("%w: gross_amount must be positive", domain.ErrInvalidInput)
	}
	currency, err := domain.NormalizeCurrency(n.Currency)
	if err != nil {
		return IngestResult{}, err
	}
	status := strings.ToLower(strings.TrimSpace(n.Status))
	if status == "" {
		status = notificationStatusSuccess
	}
	if status != notificationStatusSuccess && status != notificationStatusPending {
		s.logger.InfoContext(ctx, "payment notification ignored",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "record_payment",
			"outcome", "ignored",
			"transaction_ref", ref,
			"status", status,
		)
		return IngestResult{Ignored: true}, nil
	}

	if n.Metadata.Kind == metadataKindDeveloper {
		return s.recordDeveloperGift(ctx, channel, ref, currency, status, n)
	}

	eventID := strings.TrimSpace(n.Metadata.EventID)
	if eventID == "" {
		return IngestResult{}, fmt.Errorf("%w: missing metadata.event_id", domain.ErrInvalidInput)
	}
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return IngestResult{}, err
	}
	if event.Currency != currency {
		return IngestResult{}, fmt.Errorf("%w: event %s accepts %s, got %s", domain.ErrInvalidInput, eventID, event.Currency, currency)
	}
	now := s.nowFn()
	if !event.AcceptsContributions(now) {
		// The payer has already been charged, so the gift is still recorded.
		s.logger.WarnContext(ctx, "gift received for closed event",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "record_payment",
			"outcome", "accepted",
			"event_id", eventID,
			"event_status", event.Status,
			"transaction_ref", ref,
		)
	}

	platformFee, net, err := domain.SplitGift(n.GrossAmount, s.cfg.PlatformFeeBps)
	if err != nil {
		return IngestResult{}, err
	}
	gift := domain.Gift{
		GiftID:         uuid.NewString(),
		EventID:        eventID,
		PayerName:      strings.TrimSpace(n.Metadata.PayerName),
		PayerEmail:     strings.TrimSpace(n.Metadata.PayerEmail),
		Message:        strings.TrimSpace(n.Metadata.Message),
		Amount:         n.GrossAmount,
		Currency:       currency,
		PlatformFee:    platformFee,
		NetAmount:      net,
		Channel:        channel,
		TransactionRef: ref,
		Status:         domain.SettledStatusFor(channel),
		CreatedAt:      now,
	}
	var fee *domain.PlatformFee
	if status == notificationStatusPending {
		gift.Status = domain.GiftStatusPending
	} else {
		fee = &domain.PlatformFee{
			FeeID:     uuid.NewString(),
			EventID:   eventID,
			GiftID:    gift.GiftID,
			Amount:    platformFee,
			Currency:  currency,
			Status:    domain.FeeStatusCollected,
			CreatedAt: now,
		}
	}

	err = s.gifts.AppendGift(ctx, gift, fee)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "gift recorded",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "record_payment",
			"outcome", "success",
			"event_id", eventID,
			"gift_id", gift.GiftID,
			"transaction_ref", ref,
			"amount", gift.Amount,
			"platform_fee", gift.PlatformFee,
			"status", gift.Status,
		)
		if gift.Status != domain.GiftStatusPending {
			s.enqueueGiftRecorded(ctx, gift)
		}
		return IngestResult{GiftID: gift.GiftID, Kind: domain.LedgerKindEventGift, Status: string(gift.Status)}, nil
	case errors.Is(err, domain.ErrDuplicateNotification):
		if status == notificationStatusPending {
			return s.duplicateGift(ctx, channel, ref)
		}
		promoted, promoteErr := s.gifts.PromotePending(ctx, channel, ref, uuid.NewString(), now)
		if errors.Is(promoteErr, domain.ErrDuplicateNotification) {
			return s.duplicateGift(ctx, channel, ref)
		}
		if promoteErr != nil {
			return IngestResult{}, promoteErr
		}
		s.enqueueGiftRecorded(ctx, promoted)
		return IngestResult{GiftID: promoted.GiftID, Kind: domain.LedgerKindEventGift, Status: string(promoted.Status)}, nil
	default:
		return IngestResult{}, err
	}
}

func (s *Service) recordDeveloperGift(ctx context.Context, channel domain.Channel, ref, currency, status string, n contracts.PaymentNotification) (IngestResult, error) {
	if status == notificationStatusPending {
		return IngestResult{Ignored: true}, nil
	}
	gift := domain.DeveloperGift{
		GiftID:         uuid.NewString(),
		PayerName:      strings.TrimSpace(n.Metadata.PayerName),
		PayerEmail:     strings.TrimSpace(n.Metadata.PayerEmail),
		Message:        strings.TrimSpace(n.Metadata.Message),
		Amount:         n.GrossAmount,
		Currency:       currency,
		Channel:        channel,
		TransactionRef: ref,
		Status:         domain.SettledStatusFor(channel),
		CreatedAt:      s.nowFn(),
	}
	if err := s.developerGifts.Append(ctx, gift); err != nil {
		if errors.Is(err, domain.ErrDuplicateNotification) {
			return IngestResult{Kind: domain.LedgerKindDeveloperGift, Duplicate: true}, nil
		}
		return IngestResult{}, err
	}
	return IngestResult{GiftID: gift.GiftID, Kind: domain.LedgerKindDeveloperGift, Status: string(gift.Status)}, nil
}

func (s *Service) duplicateGift(ctx context.Context, channel domain.Channel, ref string) (IngestResult, error) {
	existing, err := s.gifts.GetByTransactionRef(ctx, channel, ref)
	if err != nil {
		return IngestResult{}, err
	}
	s.logger.InfoContext(ctx, "duplicate payment notification",
		"module", "application.reconciler",
		"layer", "application",
		"operation", "record_payment",
		"outcome", "duplicate",
		"event_id", existing.EventID,
		"gift_id", existing.GiftID,
		"transaction_ref", ref,
	)
	return IngestResult{GiftID: existing.GiftID, Kind: domain.LedgerKindEventGift, Status: string(existing.Status), Duplicate: true}, nil
}
