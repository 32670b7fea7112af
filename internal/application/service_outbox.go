package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/google/uuid"
)

func (s *Service) enqueueGiftRecorded(ctx context.Context, gift domain.Gift) {
	s.enqueue(ctx, domain.EventGiftRecorded, "data.gift_id", gift.GiftID, contracts.GiftRecordedPayload{
		GiftID:      gift.GiftID,
		EventID:     gift.EventID,
		Kind:        string(domain.LedgerKindEventGift),
		Amount:      gift.Amount,
		PlatformFee: gift.PlatformFee,
		NetAmount:   gift.NetAmount,
		Currency:    gift.Currency,
		Channel:     string(gift.Channel),
		RecordedAt:  gift.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueuePayoutCompleted(ctx context.Context, payout domain.Payout) {
	completedAt := s.nowFn()
	if payout.SettledAt != nil {
		completedAt = *payout.SettledAt
	}
	s.enqueue(ctx, domain.EventPayoutCompleted, "data.payout_id", payout.PayoutID, contracts.PayoutCompletedPayload{
		PayoutID:    payout.PayoutID,
		Kind:        string(payout.Kind),
		EventID:     payout.EventID,
		RequestedBy: payout.RequestedBy,
		NetAmount:   payout.NetAmount,
		Currency:    payout.Currency,
		TransferRef: payout.TransferRef,
		CompletedAt: completedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueuePayoutFailed(ctx context.Context, payout domain.Payout) {
	failedAt := s.nowFn()
	if payout.FailedAt != nil {
		failedAt = *payout.FailedAt
	}
	s.enqueue(ctx, domain.EventPayoutFailed, "data.payout_id", payout.PayoutID, contracts.PayoutFailedPayload{
		PayoutID:    payout.PayoutID,
		Kind:        string(payout.Kind),
		EventID:     payout.EventID,
		RequestedBy: payout.RequestedBy,
		NetAmount:   payout.NetAmount,
		Currency:    payout.Currency,
		TransferRef: payout.TransferRef,
		FailedAt:    failedAt.Format(time.RFC3339),
		Reason:      payout.FailureReason,
	})
}

func (s *Service) enqueueEventExpired(ctx context.Context, eventID string) {
	payload := contracts.EventExpiredPayload{EventID: eventID, ExpiredAt: s.nowFn().Format(time.RFC3339)}
	if event, err := s.events.Get(ctx, eventID); err == nil {
		payload.RaisedTotal = event.RaisedTotal
		payload.GiftCount = event.GiftCount
	}
	s.enqueue(ctx, domain.EventEventsExpired, "data.event_id", eventID, payload)
}

func (s *Service) partialSettlementEnvelope(payout domain.Payout, transferRef string, cause error) contracts.EventEnvelope {
	at := s.nowFn()
	data, _ := json.Marshal(contracts.PartialSettlementPayload{
		PayoutID:    payout.PayoutID,
		Kind:        string(payout.Kind),
		EventID:     payout.EventID,
		TransferRef: transferRef,
		NetAmount:   payout.NetAmount,
		Currency:    payout.Currency,
		RecordIDs:   payout.RecordIDs,
		Error:       cause.Error(),
		DetectedAt:  at.Format(time.RFC3339),
	})
	return s.envelope(domain.EventSettlementAlerted, domain.CanonicalEventClassOps, "data.payout_id", payout.PayoutID, at, data)
}

// enqueue writes a notification to the outbox. Delivery is fire-and-forget,
// so a failed enqueue is logged and never fails the ledger operation.
func (s *Service) enqueue(ctx context.Context, eventType, partitionPath, partitionKey string, payload any) {
	if s.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err == nil {
		now := s.nowFn()
		err = s.outbox.Enqueue(ctx, ports.OutboxRecord{
			RecordID:   uuid.NewString(),
			EventClass: domain.CanonicalEventClassDomain,
			Envelope:   s.envelope(eventType, domain.CanonicalEventClassDomain, partitionPath, partitionKey, now, data),
			CreatedAt:  now,
		})
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "application.outbox",
			"layer", "application",
			"operation", "enqueue",
			"outcome", "failure",
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err,
		)
	}
}

func (s *Service) envelope(eventType, eventClass, partitionPath, partitionKey string, at time.Time, data []byte) contracts.EventEnvelope {
	return contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       eventClass,
		OccurredAt:       at,
		PartitionKeyPath: partitionPath,
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          uuid.NewString(),
		SchemaVersion:    "v1",
		Data:             data,
	}
}
