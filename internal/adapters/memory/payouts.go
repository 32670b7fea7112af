package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

type PayoutRepository struct {
	l *ledger
}

func (r *PayoutRepository) Reserve(_ context.Context, payout domain.Payout) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if _, exists := r.l.payouts[payout.PayoutID]; exists {
		return domain.ErrConflict
	}
	if len(payout.RecordIDs) == 0 {
		return domain.ErrInvalidInput
	}
	for _, id := range payout.RecordIDs {
		if !r.l.claimable(payout, id) {
			return domain.ErrConflict
		}
	}
	for _, id := range payout.RecordIDs {
		r.l.setClaim(payout.Kind, id, payout.PayoutID)
	}
	payout.RecordIDs = slices.Clone(payout.RecordIDs)
	r.l.payouts[payout.PayoutID] = payout
	return nil
}

func (r *PayoutRepository) MarkAccepted(_ context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, error) {
	return r.transition(payoutID, domain.PayoutStatusAccepted, func(p *domain.Payout) {
		at := update.At
		p.AcceptedAt = &at
	}, update)
}

func (r *PayoutRepository) MarkUnknown(_ context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, error) {
	return r.transition(payoutID, domain.PayoutStatusUnknown, func(p *domain.Payout) {
		p.FailureReason = update.Reason
	}, update)
}

func (r *PayoutRepository) transition(payoutID string, to domain.PayoutStatus, apply func(*domain.Payout), update ports.PayoutUpdate) (domain.Payout, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	payout, ok := r.l.payouts[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	if !domain.CanTransitionPayout(payout.Status, to) {
		return domain.Payout{}, domain.ErrIllegalTransition
	}
	if err := r.l.applyUpdate(&payout, update); err != nil {
		return domain.Payout{}, err
	}
	payout.Status = to
	apply(&payout)
	r.l.payouts[payoutID] = payout
	return clonePayout(payout), nil
}

func (r *PayoutRepository) Settle(_ context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	payout, ok := r.l.payouts[payoutID]
	if !ok {
		return domain.Payout{}, false, domain.ErrNotFound
	}
	switch payout.Status {
	case domain.PayoutStatusSucceeded:
		return clonePayout(payout), false, nil
	case domain.PayoutStatusFailed:
		return domain.Payout{}, false, domain.ErrIllegalTransition
	}
	if err := r.l.applyUpdate(&payout, update); err != nil {
		return domain.Payout{}, false, err
	}
	claimed := r.l.claimedBy(payout)
	switch payout.Kind {
	case domain.LedgerKindEventGift:
		r.l.markGiftsWithdrawn(payout.EventID, claimed, update.At)
	case domain.LedgerKindPlatformFee:
		r.l.markFeesWithdrawn(claimed, update.At)
	case domain.LedgerKindDeveloperGift:
		r.l.markDeveloperGiftsWithdrawn(claimed, update.At)
	}
	at := update.At
	payout.Status = domain.PayoutStatusSucceeded
	payout.SettledAt = &at
	if payout.AcceptedAt == nil {
		payout.AcceptedAt = &at
	}
	r.l.payouts[payoutID] = payout
	return clonePayout(payout), true, nil
}

func (r *PayoutRepository) Fail(_ context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	payout, ok := r.l.payouts[payoutID]
	if !ok {
		return domain.Payout{}, false, domain.ErrNotFound
	}
	switch payout.Status {
	case domain.PayoutStatusFailed:
		return clonePayout(payout), false, nil
	case domain.PayoutStatusSucceeded:
		return domain.Payout{}, false, domain.ErrIllegalTransition
	}
	if err := r.l.applyUpdate(&payout, update); err != nil {
		return domain.Payout{}, false, err
	}
	for _, id := range r.l.claimedBy(payout) {
		r.l.setClaim(payout.Kind, id, "")
	}
	at := update.At
	payout.Status = domain.PayoutStatusFailed
	payout.FailedAt = &at
	if update.Reason != "" {
		payout.FailureReason = update.Reason
	}
	r.l.payouts[payoutID] = payout
	return clonePayout(payout), true, nil
}

func (r *PayoutRepository) Get(_ context.Context, payoutID string) (domain.Payout, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	payout, ok := r.l.payouts[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return clonePayout(payout), nil
}

func (r *PayoutRepository) GetByTransferRef(_ context.Context, transferRef string) (domain.Payout, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	id, ok := r.l.payoutRefs[transferRef]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return clonePayout(r.l.payouts[id]), nil
}

func (r *PayoutRepository) List(_ context.Context, query ports.PayoutQuery) ([]domain.Payout, int, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	items := make([]domain.Payout, 0)
	for _, payout := range r.l.payouts {
		if query.Kind != "" && payout.Kind != query.Kind {
			continue
		}
		if query.EventID != "" && payout.EventID != query.EventID {
			continue
		}
		items = append(items, clonePayout(payout))
	}
	slices.SortFunc(items, func(a, b domain.Payout) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return paginate(items, ports.PageQuery{Limit: query.Limit, Offset: query.Offset})
}

// applyUpdate copies gateway identifiers onto the payout, keeping transfer
// refs unique across payouts.
func (l *ledger) applyUpdate(payout *domain.Payout, update ports.PayoutUpdate) error {
	if update.TransferRef != "" && update.TransferRef != payout.TransferRef {
		if owner, taken := l.payoutRefs[update.TransferRef]; taken && owner != payout.PayoutID {
			return domain.ErrConflict
		}
		l.payoutRefs[update.TransferRef] = payout.PayoutID
		payout.TransferRef = update.TransferRef
	}
	if update.RecipientToken != "" {
		payout.RecipientToken = update.RecipientToken
	}
	payout.UpdatedAt = update.At
	return nil
}

func (l *ledger) claimable(payout domain.Payout, id string) bool {
	switch payout.Kind {
	case domain.LedgerKindEventGift:
		gift, ok := l.gifts[id]
		return ok && gift.EventID == payout.EventID && gift.Status.Eligible() && gift.PayoutID == ""
	case domain.LedgerKindPlatformFee:
		fee, ok := l.fees[id]
		return ok && strings.EqualFold(fee.Currency, payout.Currency) && fee.Status.Eligible() && fee.PayoutID == ""
	case domain.LedgerKindDeveloperGift:
		gift, ok := l.devGifts[id]
		return ok && strings.EqualFold(gift.Currency, payout.Currency) && gift.Status.Eligible() && gift.PayoutID == ""
	default:
		return false
	}
}

// claimedBy lists the payout's records that still carry its claim.
func (l *ledger) claimedBy(payout domain.Payout) []string {
	out := make([]string, 0, len(payout.RecordIDs))
	for _, id := range payout.RecordIDs {
		var owner string
		var eligible bool
		switch payout.Kind {
		case domain.LedgerKindEventGift:
			owner, eligible = l.gifts[id].PayoutID, l.gifts[id].Status.Eligible()
		case domain.LedgerKindPlatformFee:
			owner, eligible = l.fees[id].PayoutID, l.fees[id].Status.Eligible()
		case domain.LedgerKindDeveloperGift:
			owner, eligible = l.devGifts[id].PayoutID, l.devGifts[id].Status.Eligible()
		}
		if owner == payout.PayoutID && eligible {
			out = append(out, id)
		}
	}
	return out
}

func (l *ledger) setClaim(kind domain.LedgerKind, id, payoutID string) {
	switch kind {
	case domain.LedgerKindEventGift:
		gift := l.gifts[id]
		gift.PayoutID = payoutID
		l.gifts[id] = gift
	case domain.LedgerKindPlatformFee:
		fee := l.fees[id]
		fee.PayoutID = payoutID
		l.fees[id] = fee
	case domain.LedgerKindDeveloperGift:
		gift := l.devGifts[id]
		gift.PayoutID = payoutID
		l.devGifts[id] = gift
	}
}

func clonePayout(payout domain.Payout) domain.Payout {
	payout.RecordIDs = slices.Clone(payout.RecordIDs)
	return payout
}

type OutboxRepository struct {
	mu      sync.RWMutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.RecordID]; exists {
		return domain.ErrConflict
	}
	r.records[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.OutboxRecord, 0)
	for _, id := range r.order {
		record := r.records[id]
		if record.SentAt != nil {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.SentAt = &at
	r.records[recordID] = record
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, recordID, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.RetryCount++
	r.records[recordID] = record
	return nil
}

// EventTypes returns the event types of every enqueued record in order.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Envelope.EventType)
	}
	return out
}

var (
	_ ports.PayoutRepository = (*PayoutRepository)(nil)
	_ ports.OutboxRepository = (*OutboxRepository)(nil)
)
