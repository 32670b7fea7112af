package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

type pendingEntry struct {
	payment   ports.PendingPayment
	expiresAt time.Time
}

// PendingPaymentStore keeps pending checkouts in process memory. It is for
// tests and single-process development only; production uses Redis.
type PendingPaymentStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	nowFn   func() time.Time
}

func NewPendingPaymentStore() *PendingPaymentStore {
	return &PendingPaymentStore{
		entries: make(map[string]pendingEntry),
		nowFn:   time.Now,
	}
}

func (s *PendingPaymentStore) Put(_ context.Context, payment ports.PendingPayment, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[payment.CheckoutRef] = pendingEntry{payment: payment, expiresAt: s.nowFn().Add(ttl)}
	return nil
}

func (s *PendingPaymentStore) Get(_ context.Context, checkoutRef string) (ports.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[checkoutRef]
	if !ok {
		return ports.PendingPayment{}, domain.ErrNotFound
	}
	if s.nowFn().After(entry.expiresAt) {
		delete(s.entries, checkoutRef)
		return ports.PendingPayment{}, domain.ErrNotFound
	}
	return entry.payment, nil
}

var _ ports.PendingPaymentStore = (*PendingPaymentStore)(nil)
