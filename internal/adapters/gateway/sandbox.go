package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

// SandboxFallback turns GatewayUnavailable answers from the wrapped gateway
// into simulated successes. It exists for sandbox environments whose provider
// test endpoints are unreliable and cannot be built for production.
type SandboxFallback struct {
	inner  ports.PayoutGateway
	logger *slog.Logger
}

func NewSandboxFallback(inner ports.PayoutGateway, environment string, logger *slog.Logger) (*SandboxFallback, error) {
	if IsProduction(environment) {
		return nil, fmt.Errorf("sandbox fallback for gateway %s is not allowed in %s", inner.Name(), environment)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SandboxFallback{inner: inner, logger: logger}, nil
}

func IsProduction(environment string) bool {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func (s *SandboxFallback) Name() string { return s.inner.Name() }

func (s *SandboxFallback) CreateRecipient(ctx context.Context, accountRef, currency string) (string, error) {
	token, err := s.inner.CreateRecipient(ctx, accountRef, currency)
	if err == nil || !errors.Is(err, domain.ErrGatewayUnavailable) {
		return token, err
	}
	s.simulated(ctx, "create_recipient", accountRef, err)
	return "SANDBOX-RCP-" + accountRef, nil
}

func (s *SandboxFallback) InitiateTransfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	result, err := s.inner.InitiateTransfer(ctx, req)
	if err == nil || !errors.Is(err, domain.ErrGatewayUnavailable) || errors.Is(err, ErrTransferInFlight) {
		return result, err
	}
	s.simulated(ctx, "initiate_transfer", req.Reference, err)
	return ports.TransferResult{
		Accepted:    true,
		Settled:     true,
		TransferRef: "SANDBOX-TRF-" + req.Reference,
		Message:     "simulated sandbox transfer",
	}, nil
}

func (s *SandboxFallback) simulated(ctx context.Context, operation, reference string, cause error) {
	s.logger.WarnContext(ctx, "gateway unavailable, simulating success",
		"module", "gateway.sandbox",
		"layer", "adapter",
		"operation", operation,
		"outcome", "simulated",
		"gateway", s.inner.Name(),
		"reference", reference,
		"error", cause,
	)
}

var _ ports.PayoutGateway = (*SandboxFallback)(nil)
