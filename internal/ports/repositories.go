package ports

import (
	"context"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
)

type EventRepository interface {
	Upsert(ctx context.Context, event domain.Event) (domain.Event, error)
	Get(ctx context.Context, eventID string) (domain.Event, error)
	// ExpireDue moves active events whose expiry has passed to expired and
	// returns their ids.
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type PageQuery struct {
	Limit  int
	Offset int
}

// GiftRepository is the per-event gift record store. Every method that
// settles a gift also updates the event aggregates and the fee ledger in the
// same transaction.
type GiftRepository interface {
	// AppendGift returns domain.ErrDuplicateNotification when the
	// (channel, transaction ref) pair is already recorded and
	// domain.ErrNotFound when the event does not exist.
	AppendGift(ctx context.Context, gift domain.Gift, fee *domain.PlatformFee) error
	// PromotePending settles a pending gift. It returns
	// domain.ErrDuplicateNotification when the gift is already settled.
	PromotePending(ctx context.Context, channel domain.Channel, transactionRef, feeID string, at time.Time) (domain.Gift, error)
	GetByTransactionRef(ctx context.Context, channel domain.Channel, transactionRef string) (domain.Gift, error)
	ListByEvent(ctx context.Context, eventID string, query PageQuery) ([]domain.Gift, int, error)
	// ListEligible returns gifts in one of statuses, claimed or not, oldest first.
	ListEligible(ctx context.Context, eventID string, statuses []domain.GiftStatus) ([]domain.Gift, error)
	WithdrawnTotal(ctx context.Context, eventID string) (int64, error)
}

type FeeRepository interface {
	ListEligible(ctx context.Context, currency string) ([]domain.PlatformFee, error)
}

type DeveloperGiftRepository interface {
	Append(ctx context.Context, gift domain.DeveloperGift) error
	ListEligible(ctx context.Context, currency string) ([]domain.DeveloperGift, error)
}

type PayoutUpdate struct {
	RecipientToken string
	TransferRef    string
	Reason         string
	At             time.Time
}

type PayoutQuery struct {
	Kind    domain.LedgerKind
	EventID string
	Limit   int
	Offset  int
}

// PayoutRepository owns the in-flight claim on ledger records. Reserve is
// the only way to claim records and Settle/Fail the only ways to resolve a
// claim; Settle and Fail report changed=false when the payout was already in
// the requested terminal state.
type PayoutRepository interface {
	// Reserve inserts the payout and claims every id in payout.RecordIDs, or
	// nothing. It returns domain.ErrConflict when any record is already
	// claimed or no longer eligible.
	Reserve(ctx context.Context, payout domain.Payout) error
	MarkAccepted(ctx context.Context, payoutID string, update PayoutUpdate) (domain.Payout, error)
	MarkUnknown(ctx context.Context, payoutID string, update PayoutUpdate) (domain.Payout, error)
	Settle(ctx context.Context, payoutID string, update PayoutUpdate) (domain.Payout, bool, error)
	Fail(ctx context.Context, payoutID string, update PayoutUpdate) (domain.Payout, bool, error)
	Get(ctx context.Context, payoutID string) (domain.Payout, error)
	GetByTransferRef(ctx context.Context, transferRef string) (domain.Payout, error)
	List(ctx context.Context, query PayoutQuery) ([]domain.Payout, int, error)
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	RetryCount int
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
	MarkFailed(ctx context.Context, recordID, errMsg string, at time.Time) error
}

// PendingPayment is the checkout metadata a push payment needs when its
// callback arrives without it.
type PendingPayment struct {
	CheckoutRef  string    `json:"checkout_ref"`
	EventID      string    `json:"event_id"`
	Kind         string    `json:"kind"`
	PayerName    string    `json:"payer_name"`
	PayerEmail   string    `json:"payer_email"`
	Message      string    `json:"message"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PendingPaymentStore interface {
	Put(ctx context.Context, payment PendingPayment, ttl time.Duration) error
	Get(ctx context.Context, checkoutRef string) (PendingPayment, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	PayoutID    string
	ExpiresAt   time.Time
}

// IdempotencyRepository remembers which payout a withdrawal key produced.
// Reserve returns domain.ErrConflict while an unexpired record holds the key.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error
	Complete(ctx context.Context, key, payoutID string, at time.Time) error
	Release(ctx context.Context, key string) error
}
