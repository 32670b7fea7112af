package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

// UpsertEvent mirrors an event from the event directory into the ledger.
// Currency is fixed once gifts exist, and an event holding unwithdrawn funds
// cannot be deleted.
func (s *Service) UpsertEvent(ctx context.Context, actor Actor, input UpsertEventInput) (domain.Event, error) {
	if !actor.privileged() && actor.Role != RoleSystem {
		return domain.Event{}, domain.ErrForbidden
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return domain.Event{}, err
	}
	if input.Status == "" {
		input.Status = domain.EventStatusActive
	}
	now := s.nowFn()
	event := domain.Event{
		EventID:     strings.TrimSpace(input.EventID),
		OrganizerID: strings.TrimSpace(input.OrganizerID),
		Title:       strings.TrimSpace(input.Title),
		Currency:    currency,
		Status:      input.Status,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := domain.ValidateEvent(event); err != nil {
		return domain.Event{}, err
	}

	existing, err := s.events.Get(ctx, event.EventID)
	switch {
	case err == nil:
		if existing.GiftCount > 0 && existing.Currency != event.Currency {
			return domain.Event{}, fmt.Errorf("%w: currency is fixed once gifts are recorded", domain.ErrConflict)
		}
		if event.Status == domain.EventStatusDeleted && existing.Status != domain.EventStatusDeleted {
			balance, balErr := s.eventBalance(ctx, existing)
			if balErr != nil {
				return domain.Event{}, balErr
			}
			if balance.EligibleAmount > 0 || balance.InFlightAmount > 0 {
				return domain.Event{}, fmt.Errorf("%w: event has %d outstanding", domain.ErrConflict, balance.EligibleAmount+balance.InFlightAmount)
			}
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return domain.Event{}, err
	}
	return s.events.Upsert(ctx, event)
}

func (s *Service) GetEventBalance(ctx context.Context, actor Actor, eventID string) (domain.EventBalance, error) {
	event, err := s.authorizedEvent(ctx, actor, eventID)
	if err != nil {
		return domain.EventBalance{}, err
	}
	return s.eventBalance(ctx, event)
}

func (s *Service) ListEventGifts(ctx context.Context, actor Actor, eventID string, query ports.PageQuery) (GiftPage, error) {
	if _, err := s.authorizedEvent(ctx, actor, eventID); err != nil {
		return GiftPage{}, err
	}
	if query.Limit <= 0 || query.Limit > 200 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.gifts.ListByEvent(ctx, eventID, query)
	if err != nil {
		return GiftPage{}, err
	}
	return GiftPage{
		Items: items,
		Pagination: contracts.Pagination{
			Limit:  query.Limit,
			Offset: query.Offset,
			Total:  total,
		},
	}, nil
}

// ExpireEvents closes every active event whose expiry has passed. It is the
// body of the hourly sweep and is safe to run alongside live traffic.
func (s *Service) ExpireEvents(ctx context.Context) (int, error) {
	total := 0
	for {
		ids, err := s.events.ExpireDue(ctx, s.nowFn(), s.cfg.SweepBatchSize)
		if err != nil {
			return total, err
		}
		total += len(ids)
		for _, id := range ids {
			s.logger.InfoContext(ctx, "event expired",
				"module", "application.sweep",
				"layer", "application",
				"operation", "expire_events",
				"outcome", "success",
				"event_id", id,
			)
			s.enqueueEventExpired(ctx, id)
		}
		if len(ids) < s.cfg.SweepBatchSize {
			return total, nil
		}
	}
}

func (s *Service) authorizedEvent(ctx context.Context, actor Actor, eventID string) (domain.Event, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Event{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(eventID) == "" {
		return domain.Event{}, fmt.Errorf("%w: missing event_id", domain.ErrInvalidInput)
	}
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if !actor.privileged() && event.OrganizerID != actor.SubjectID {
		return domain.Event{}, domain.ErrForbidden
	}
	return event, nil
}

func (s *Service) eventBalance(ctx context.Context, event domain.Event) (domain.EventBalance, error) {
	gifts, err := s.gifts.ListEligible(ctx, event.EventID, domain.EligibleGiftStatuses)
	if err != nil {
		return domain.EventBalance{}, err
	}
	withdrawn, err := s.gifts.WithdrawnTotal(ctx, event.EventID)
	if err != nil {
		return domain.EventBalance{}, err
	}
	balance := domain.EventBalance{
		EventID:        event.EventID,
		Currency:       event.Currency,
		RaisedTotal:    event.RaisedTotal,
		GiftCount:      event.GiftCount,
		WithdrawnTotal: withdrawn,
	}
	for _, gift := range gifts {
		if gift.PayoutID != "" {
			balance.InFlightAmount += gift.NetAmount
			continue
		}
		balance.EligibleAmount += gift.NetAmount
		balance.EligibleCount++
	}
	return balance, nil
}
