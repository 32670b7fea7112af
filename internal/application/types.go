package application

import (
	"log/slog"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

const (
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
	RoleOperator  = "operator"
	RoleSystem    = "system"
)

type Config struct {
	ServiceName       string
	PlatformFeeBps    int64
	DefaultCurrency   string
	DefaultGateway    string
	TransferFees      map[string]int64
	GatewayTimeout    time.Duration
	PendingPaymentTTL time.Duration
	ReserveAttempts   int
	SweepBatchSize    int
	IdempotencyTTL    time.Duration
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) privileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleOperator
}

type WithdrawInput struct {
	MaxAmount  int64
	Currency   string
	Gateway    string
	AccountRef string
}

type RegisterPendingInput struct {
	CheckoutRef string
	EventID     string
	Kind        string
	PayerName   string
	PayerEmail  string
	Message     string
	Amount      int64
	Currency    string
}

type UpsertEventInput struct {
	EventID     string
	OrganizerID string
	Title       string
	Currency    string
	Status      domain.EventStatus
	ExpiresAt   *time.Time
}

// IngestResult describes what an inbound notification did to the ledger.
// Duplicate and Ignored results are successful acknowledgements.
type IngestResult struct {
	GiftID    string            `json:"gift_id,omitempty"`
	Kind      domain.LedgerKind `json:"kind,omitempty"`
	Status    string            `json:"status,omitempty"`
	Duplicate bool              `json:"duplicate"`
	Ignored   bool              `json:"ignored"`
}

type CallbackResult struct {
	PayoutID  string              `json:"payout_id"`
	Status    domain.PayoutStatus `json:"status"`
	Duplicate bool                `json:"duplicate"`
}

type GiftPage struct {
	Items      []domain.Gift
	Pagination contracts.Pagination
}

type Service struct {
	cfg            Config
	logger         *slog.Logger
	events         ports.EventRepository
	gifts          ports.GiftRepository
	fees           ports.FeeRepository
	developerGifts ports.DeveloperGiftRepository
	payouts        ports.PayoutRepository
	outbox         ports.OutboxRepository
	pending        ports.PendingPaymentStore
	idempotency    ports.IdempotencyRepository
	gateways       map[string]ports.PayoutGateway
	alerts         ports.AlertPublisher
	nowFn          func() time.Time
}

type Dependencies struct {
	Config         Config
	Logger         *slog.Logger
	Events         ports.EventRepository
	Gifts          ports.GiftRepository
	Fees           ports.FeeRepository
	DeveloperGifts ports.DeveloperGiftRepository
	Payouts        ports.PayoutRepository
	Outbox         ports.OutboxRepository
	Pending        ports.PendingPaymentStore
	Idempotency    ports.IdempotencyRepository
	Gateways       []ports.PayoutGateway
	Alerts         ports.AlertPublisher
	Clock          func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gift-ledger-service"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "KES"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if cfg.PendingPaymentTTL <= 0 {
		cfg.PendingPaymentTTL = 24 * time.Hour
	}
	if cfg.ReserveAttempts <= 0 {
		cfg.ReserveAttempts = 3
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 500
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.TransferFees == nil {
		cfg.TransferFees = map[string]int64{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gateways := make(map[string]ports.PayoutGateway, len(deps.Gateways))
	for _, gw := range deps.Gateways {
		gateways[gw.Name()] = gw
		if cfg.DefaultGateway == "" {
			cfg.DefaultGateway = gw.Name()
		}
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:            cfg,
		logger:         logger,
		events:         deps.Events,
		gifts:          deps.Gifts,
		fees:           deps.Fees,
		developerGifts: deps.DeveloperGifts,
		payouts:        deps.Payouts,
		outbox:         deps.Outbox,
		pending:        deps.Pending,
		idempotency:    deps.Idempotency,
		gateways:       gateways,
		alerts:         deps.Alerts,
		nowFn:          nowFn,
	}
}
