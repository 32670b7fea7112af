package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/google/uuid"
)

// WithdrawEventFunds pays an event's eligible gifts out to its organizer.
// The requested amount is only a target: eligibility is recomputed from the
// ledger and whole gifts are selected oldest first.
func (s *Service) WithdrawEventFunds(ctx context.Context, actor Actor, eventID string, input WithdrawInput) (domain.Payout, error) {
	event, err := s.authorizedEvent(ctx, actor, eventID)
	if err != nil {
		return domain.Payout{}, err
	}
	scope := domain.LedgerScope{Kind: domain.LedgerKindEventGift, EventID: event.EventID, Currency: event.Currency}
	return s.withdraw(ctx, actor, scope, input)
}

// WithdrawPlatformFees pays collected platform fees to the operator.
func (s *Service) WithdrawPlatformFees(ctx context.Context, actor Actor, input WithdrawInput) (domain.Payout, error) {
	return s.withdrawOperatorPool(ctx, actor, domain.LedgerKindPlatformFee, input)
}

// WithdrawDeveloperGifts pays developer-funnel gifts to the operator.
func (s *Service) WithdrawDeveloperGifts(ctx context.Context, actor Actor, input WithdrawInput) (domain.Payout, error) {
	return s.withdrawOperatorPool(ctx, actor, domain.LedgerKindDeveloperGift, input)
}

func (s *Service) GetPayout(ctx context.Context, actor Actor, payoutID string) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	payout, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if !actor.privileged() && payout.RequestedBy != actor.SubjectID {
		return domain.Payout{}, domain.ErrForbidden
	}
	return payout, nil
}

func (s *Service) ListEventPayouts(ctx context.Context, actor Actor, eventID string, query ports.PageQuery) ([]domain.Payout, int, error) {
	if _, err := s.authorizedEvent(ctx, actor, eventID); err != nil {
		return nil, 0, err
	}
	if query.Limit <= 0 || query.Limit > 200 {
		query.Limit = 50
	}
	return s.payouts.List(ctx, ports.PayoutQuery{
		Kind:    domain.LedgerKindEventGift,
		EventID: eventID,
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
}

func (s *Service) withdrawOperatorPool(ctx context.Context, actor Actor, kind domain.LedgerKind, input WithdrawInput) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return domain.Payout{}, domain.ErrForbidden
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return domain.Payout{}, err
	}
	return s.withdraw(ctx, actor, domain.LedgerScope{Kind: kind, Currency: currency}, input)
}

// withdraw reserves and dispatches one payout. A request carrying an
// idempotency key that already produced a payout returns that payout instead.
func (s *Service) withdraw(ctx context.Context, actor Actor, scope domain.LedgerScope, input WithdrawInput) (domain.Payout, error) {
	if err := scope.Validate(); err != nil {
		return domain.Payout{}, err
	}
	if input.MaxAmount < 0 {
		return domain.Payout{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidInput)
	}
	accountRef := strings.TrimSpace(input.AccountRef)
	if accountRef == "" {
		return domain.Payout{}, fmt.Errorf("%w: missing account_ref", domain.ErrInvalidInput)
	}
	gatewayName := strings.TrimSpace(input.Gateway)
	if gatewayName == "" {
		gatewayName = s.cfg.DefaultGateway
	}
	gateway, ok := s.gateways[gatewayName]
	if !ok {
		return domain.Payout{}, fmt.Errorf("%w: unknown gateway %q", domain.ErrInvalidInput, gatewayName)
	}
	flatFee := s.cfg.TransferFees[gatewayName]

	key := withdrawalKey(actor)
	requestHash := hashPayload(map[string]any{
		"kind":        scope.Kind,
		"event_id":    scope.EventID,
		"currency":    scope.Currency,
		"max_amount":  input.MaxAmount,
		"gateway":     gatewayName,
		"account_ref": accountRef,
	})
	if replayed, ok, err := s.replayWithdrawal(ctx, key, requestHash); err != nil || ok {
		return replayed, err
	}
	if err := s.reserveIdempotency(ctx, key, requestHash); err != nil {
		return domain.Payout{}, err
	}
	reserved := false
	defer func() {
		if !reserved {
			s.releaseIdempotency(ctx, key)
		}
	}()

	var payout domain.Payout
	for attempt := 1; ; attempt++ {
		records, err := s.eligibleRecords(ctx, scope)
		if err != nil {
			return domain.Payout{}, err
		}
		target := input.MaxAmount
		if target == 0 {
			target = domain.SumRecords(records)
			if target == 0 {
				return domain.Payout{}, fmt.Errorf("%w: nothing eligible for withdrawal", domain.ErrInsufficientBalance)
			}
		}
		selection, err := domain.SelectForAmount(records, target)
		if err != nil {
			return domain.Payout{}, err
		}
		net, err := domain.NetPayout(selection.Covered, flatFee)
		if err != nil {
			return domain.Payout{}, err
		}
		now := s.nowFn()
		payout = domain.Payout{
			PayoutID:        uuid.NewString(),
			Kind:            scope.Kind,
			EventID:         scope.EventID,
			Currency:        scope.Currency,
			Gateway:         gatewayName,
			AccountRef:      accountRef,
			RequestedBy:     actor.SubjectID,
			RequestedAmount: input.MaxAmount,
			CoveredAmount:   selection.Covered,
			TransferFee:     flatFee,
			NetAmount:       net,
			RecordIDs:       selection.RecordIDs,
			Status:          domain.PayoutStatusReserved,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err = s.payouts.Reserve(ctx, payout)
		if err == nil {
			reserved = true
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= s.cfg.ReserveAttempts {
			return domain.Payout{}, err
		}
		s.logger.WarnContext(ctx, "withdrawal selection raced, retrying",
			"module", "application.withdrawals",
			"layer", "application",
			"operation", "reserve",
			"outcome", "retry",
			"kind", scope.Kind,
			"event_id", scope.EventID,
			"attempt", attempt,
		)
	}

	s.logger.InfoContext(ctx, "withdrawal reserved",
		"module", "application.withdrawals",
		"layer", "application",
		"operation", "reserve",
		"outcome", "success",
		"payout_id", payout.PayoutID,
		"kind", payout.Kind,
		"event_id", payout.EventID,
		"covered_amount", payout.CoveredAmount,
		"net_amount", payout.NetAmount,
		"record_count", len(payout.RecordIDs),
	)
	s.completeIdempotency(ctx, key, payout.PayoutID)
	return s.orchestratePayout(ctx, gateway, payout)
}

// eligibleRecords reads the pool fresh from storage and keeps only records
// nobody has claimed yet.
func (s *Service) eligibleRecords(ctx context.Context, scope domain.LedgerScope) ([]domain.LedgerRecord, error) {
	var out []domain.LedgerRecord
	switch scope.Kind {
	case domain.LedgerKindEventGift:
		gifts, err := s.gifts.ListEligible(ctx, scope.EventID, domain.EligibleGiftStatuses)
		if err != nil {
			return nil, err
		}
		for _, g := range gifts {
			if g.PayoutID == "" {
				out = append(out, domain.LedgerRecord{RecordID: g.GiftID, Seq: g.Seq, Amount: g.NetAmount, CreatedAt: g.CreatedAt})
			}
		}
	case domain.LedgerKindPlatformFee:
		fees, err := s.fees.ListEligible(ctx, scope.Currency)
		if err != nil {
			return nil, err
		}
		for _, f := range fees {
			if f.PayoutID == "" {
				out = append(out, domain.LedgerRecord{RecordID: f.FeeID, Seq: f.Seq, Amount: f.Amount, CreatedAt: f.CreatedAt})
			}
		}
	case domain.LedgerKindDeveloperGift:
		gifts, err := s.developerGifts.ListEligible(ctx, scope.Currency)
		if err != nil {
			return nil, err
		}
		for _, g := range gifts {
			if g.PayoutID == "" {
				out = append(out, domain.LedgerRecord{RecordID: g.GiftID, Seq: g.Seq, Amount: g.Amount, CreatedAt: g.CreatedAt})
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown ledger kind %q", domain.ErrInvalidInput, scope.Kind)
	}
	return out, nil
}
