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

// ledger is the shared state behind every in-memory repository. A single
// lock makes each multi-record operation atomic, like a database transaction.
type ledger struct {
	mu         sync.RWMutex
	seq        int64
	events     map[string]domain.Event
	gifts      map[string]domain.Gift
	giftRefs   map[string]string
	fees       map[string]domain.PlatformFee
	devGifts   map[string]domain.DeveloperGift
	devRefs    map[string]string
	payouts    map[string]domain.Payout
	payoutRefs map[string]string
}

type Repositories struct {
	Events         *EventRepository
	Gifts          *GiftRepository
	Fees           *FeeRepository
	DeveloperGifts *DeveloperGiftRepository
	Payouts        *PayoutRepository
	Outbox         *OutboxRepository
	Pending        *PendingPaymentStore
	Idempotency    *IdempotencyRepository
}

func NewRepositories() *Repositories {
	l := &ledger{
		events:     make(map[string]domain.Event),
		gifts:      make(map[string]domain.Gift),
		giftRefs:   make(map[string]string),
		fees:       make(map[string]domain.PlatformFee),
		devGifts:   make(map[string]domain.DeveloperGift),
		devRefs:    make(map[string]string),
		payouts:    make(map[string]domain.Payout),
		payoutRefs: make(map[string]string),
	}
	return &Repositories{
		Events:         &EventRepository{l: l},
		Gifts:          &GiftRepository{l: l},
		Fees:           &FeeRepository{l: l},
		DeveloperGifts: &DeveloperGiftRepository{l: l},
		Payouts:        &PayoutRepository{l: l},
		Outbox:         &OutboxRepository{records: make(map[string]ports.OutboxRecord)},
		Pending:        NewPendingPaymentStore(),
		Idempotency:    NewIdempotencyRepository(),
	}
}

func refKey(channel domain.Channel, ref string) string {
	return string(channel) + "|" + ref
}

func (l *ledger) nextSeq() int64 {
	l.seq++
	return l.seq
}

type EventRepository struct {
	l *ledger
}

func (r *EventRepository) Upsert(_ context.Context, event domain.Event) (domain.Event, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if existing, ok := r.l.events[event.EventID]; ok {
		existing.OrganizerID = event.OrganizerID
		existing.Title = event.Title
		existing.Currency = event.Currency
		existing.Status = event.Status
		existing.ExpiresAt = event.ExpiresAt
		existing.UpdatedAt = event.UpdatedAt
		r.l.events[event.EventID] = existing
		return existing, nil
	}
	event.RaisedTotal = 0
	event.GiftCount = 0
	r.l.events[event.EventID] = event
	return event, nil
}

func (r *EventRepository) Get(_ context.Context, eventID string) (domain.Event, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	event, ok := r.l.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return event, nil
}

func (r *EventRepository) ExpireDue(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var ids []string
	for id, event := range r.l.events {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if event.Status != domain.EventStatusActive || event.ExpiresAt == nil || event.ExpiresAt.After(now) {
			continue
		}
		event.Status = domain.EventStatusExpired
		event.UpdatedAt = now
		r.l.events[id] = event
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

type GiftRepository struct {
	l *ledger
}

func (r *GiftRepository) AppendGift(_ context.Context, gift domain.Gift, fee *domain.PlatformFee) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	event, ok := r.l.events[gift.EventID]
	if !ok {
		return domain.ErrNotFound
	}
	key := refKey(gift.Channel, gift.TransactionRef)
	if _, exists := r.l.giftRefs[key]; exists {
		return domain.ErrDuplicateNotification
	}
	gift.Seq = r.l.nextSeq()
	r.l.gifts[gift.GiftID] = gift
	r.l.giftRefs[key] = gift.GiftID
	if gift.Status.CountsTowardRaised() {
		r.l.settle(&event, gift, fee)
		r.l.events[event.EventID] = event
	}
	return nil
}

func (r *GiftRepository) PromotePending(_ context.Context, channel domain.Channel, transactionRef, feeID string, at time.Time) (domain.Gift, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	id, ok := r.l.giftRefs[refKey(channel, transactionRef)]
	if !ok {
		return domain.Gift{}, domain.ErrNotFound
	}
	gift := r.l.gifts[id]
	if gift.Status != domain.GiftStatusPending {
		return domain.Gift{}, domain.ErrDuplicateNotification
	}
	event, ok := r.l.events[gift.EventID]
	if !ok {
		return domain.Gift{}, domain.ErrNotFound
	}
	gift.Status = domain.SettledStatusFor(channel)
	r.l.gifts[id] = gift
	r.l.settle(&event, gift, &domain.PlatformFee{
		FeeID:     feeID,
		EventID:   gift.EventID,
		GiftID:    gift.GiftID,
		Amount:    gift.PlatformFee,
		Currency:  gift.Currency,
		Status:    domain.FeeStatusCollected,
		CreatedAt: at,
	})
	r.l.events[event.EventID] = event
	return gift, nil
}

// settle applies the aggregate and fee side effects of a gift reaching a
// settled status. Callers hold the write lock.
func (l *ledger) settle(event *domain.Event, gift domain.Gift, fee *domain.PlatformFee) {
	event.RaisedTotal += gift.Amount
	event.GiftCount++
	if fee != nil {
		rec := *fee
		rec.Seq = l.nextSeq()
		l.fees[rec.FeeID] = rec
	}
}

func (r *GiftRepository) GetByTransactionRef(_ context.Context, channel domain.Channel, transactionRef string) (domain.Gift, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	id, ok := r.l.giftRefs[refKey(channel, transactionRef)]
	if !ok {
		return domain.Gift{}, domain.ErrNotFound
	}
	return r.l.gifts[id], nil
}

func (r *GiftRepository) ListByEvent(_ context.Context, eventID string, query ports.PageQuery) ([]domain.Gift, int, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	items := make([]domain.Gift, 0)
	for _, gift := range r.l.gifts {
		if gift.EventID == eventID {
			items = append(items, gift)
		}
	}
	sortGifts(items)
	return paginate(items, query)
}

func (r *GiftRepository) ListEligible(_ context.Context, eventID string, statuses []domain.GiftStatus) ([]domain.Gift, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	items := make([]domain.Gift, 0)
	for _, gift := range r.l.gifts {
		if gift.EventID == eventID && slices.Contains(statuses, gift.Status) {
			items = append(items, gift)
		}
	}
	sortGifts(items)
	return items, nil
}

func (l *ledger) markGiftsWithdrawn(eventID string, giftIDs []string, at time.Time) int {
	changed := 0
	for _, id := range giftIDs {
		gift, ok := l.gifts[id]
		if !ok || gift.EventID != eventID || !gift.Status.Eligible() {
			continue
		}
		stamp := at
		gift.Status = domain.GiftStatusWithdrawn
		gift.WithdrawnAt = &stamp
		l.gifts[id] = gift
		changed++
	}
	return changed
}

func (r *GiftRepository) WithdrawnTotal(_ context.Context, eventID string) (int64, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	var total int64
	for _, gift := range r.l.gifts {
		if gift.EventID == eventID && gift.Status == domain.GiftStatusWithdrawn {
			total += gift.NetAmount
		}
	}
	return total, nil
}

type FeeRepository struct {
	l *ledger
}

func (r *FeeRepository) ListEligible(_ context.Context, currency string) ([]domain.PlatformFee, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	items := make([]domain.PlatformFee, 0)
	for _, fee := range r.l.fees {
		if fee.Status.Eligible() && strings.EqualFold(fee.Currency, currency) {
			items = append(items, fee)
		}
	}
	slices.SortFunc(items, func(a, b domain.PlatformFee) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return items, nil
}

func (l *ledger) markFeesWithdrawn(feeIDs []string, at time.Time) int {
	changed := 0
	for _, id := range feeIDs {
		fee, ok := l.fees[id]
		if !ok || !fee.Status.Eligible() {
			continue
		}
		stamp := at
		fee.Status = domain.FeeStatusWithdrawn
		fee.WithdrawnAt = &stamp
		l.fees[id] = fee
		changed++
	}
	return changed
}

type DeveloperGiftRepository struct {
	l *ledger
}

func (r *DeveloperGiftRepository) Append(_ context.Context, gift domain.DeveloperGift) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	key := refKey(gift.Channel, gift.TransactionRef)
	if _, exists := r.l.devRefs[key]; exists {
		return domain.ErrDuplicateNotification
	}
	gift.Seq = r.l.nextSeq()
	r.l.devGifts[gift.GiftID] = gift
	r.l.devRefs[key] = gift.GiftID
	return nil
}

func (r *DeveloperGiftRepository) ListEligible(_ context.Context, currency string) ([]domain.DeveloperGift, error) {
	r.l.mu.RLock()
	defer r.l.mu.RUnlock()
	items := make([]domain.DeveloperGift, 0)
	for _, gift := range r.l.devGifts {
		if gift.Status.Eligible() && strings.EqualFold(gift.Currency, currency) {
			items = append(items, gift)
		}
	}
	slices.SortFunc(items, func(a, b domain.DeveloperGift) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return items, nil
}

func (l *ledger) markDeveloperGiftsWithdrawn(giftIDs []string, at time.Time) int {
	changed := 0
	for _, id := range giftIDs {
		gift, ok := l.devGifts[id]
		if !ok || !gift.Status.Eligible() {
			continue
		}
		stamp := at
		gift.Status = domain.GiftStatusWithdrawn
		gift.WithdrawnAt = &stamp
		l.devGifts[id] = gift
		changed++
	}
	return changed
}

func sortGifts(items []domain.Gift) {
	slices.SortFunc(items, func(a, b domain.Gift) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
}

func paginate[T any](items []T, query ports.PageQuery) ([]T, int, error) {
	total := len(items)
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Offset >= len(items) {
		return []T{}, total, nil
	}
	end := query.Offset + query.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-query.Offset)
	copy(out, items[query.Offset:end])
	return out, total, nil
}

var (
	_ ports.EventRepository         = (*EventRepository)(nil)
	_ ports.GiftRepository          = (*GiftRepository)(nil)
	_ ports.FeeRepository           = (*FeeRepository)(nil)
	_ ports.DeveloperGiftRepository = (*DeveloperGiftRepository)(nil)
)
