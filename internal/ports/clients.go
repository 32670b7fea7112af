package ports

import (
	"context"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
)

type TransferRequest struct {
	RecipientToken string
	Amount         int64
	Currency       string
	Reference      string
}

// TransferResult is the gateway's synchronous answer. Settled is true only
// when the provider reports final success in the same response.
type TransferResult struct {
	Accepted    bool
	Settled     bool
	TransferRef string
	Message     string
}

// PayoutGateway is an outbound transfer provider. Implementations return
// errors wrapping domain.ErrGatewayRejected or domain.ErrGatewayUnavailable.
type PayoutGateway interface {
	Name() string
	CreateRecipient(ctx context.Context, accountRef, currency string) (string, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// AlertPublisher carries operator alerts. It must not depend on the ledger
// database, which may be the failing component.
type AlertPublisher interface {
	Escalate(ctx context.Context, alert contracts.EventEnvelope) error
}
