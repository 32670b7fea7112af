package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

// orchestratePayout drives a reserved payout through the gateway's two-step
// protocol. The claimed records are only advanced after the transfer is
// accepted. A transfer whose outcome is unknown keeps its claim until the
// gateway callback resolves it.
func (s *Service) orchestratePayout(ctx context.Context, gateway ports.PayoutGateway, payout domain.Payout) (domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		s.abortPayout(context.WithoutCancel(ctx), payout, "cancelled before dispatch", false)
		return domain.Payout{}, err
	}

	recipientCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	token, err := gateway.CreateRecipient(recipientCtx, payout.AccountRef, payout.Currency)
	cancel()
	if err != nil {
		err = classifyGatewayError(err)
		s.logGatewayFailure(ctx, payout, "create_recipient", err)
		s.abortPayout(context.WithoutCancel(ctx), payout, err.Error(), true)
		return domain.Payout{}, err
	}

	// Once the transfer is dispatched the caller can no longer cancel.
	dispatchCtx := context.WithoutCancel(ctx)
	transferCtx, cancel := context.WithTimeout(dispatchCtx, s.cfg.GatewayTimeout)
	result, err := gateway.InitiateTransfer(transferCtx, ports.TransferRequest{
		RecipientToken: token,
		Amount:         payout.NetAmount,
		Currency:       payout.Currency,
		Reference:      payout.PayoutID,
	})
	cancel()
	if err == nil && !result.Accepted {
		err = fmt.Errorf("%w: %s", domain.ErrGatewayRejected, result.Message)
	}
	if err != nil {
		err = classifyGatewayError(err)
		s.logGatewayFailure(dispatchCtx, payout, "initiate_transfer", err)
		if errors.Is(err, domain.ErrGatewayRejected) {
			s.abortPayout(dispatchCtx, payout, err.Error(), true)
			return domain.Payout{}, err
		}
		if _, markErr := s.payouts.MarkUnknown(dispatchCtx, payout.PayoutID, ports.PayoutUpdate{
			RecipientToken: token,
			Reason:         err.Error(),
			At:             s.nowFn(),
		}); markErr != nil {
			s.logger.ErrorContext(dispatchCtx, "payout outcome could not be recorded",
				"module", "application.orchestrator",
				"layer", "application",
				"operation", "mark_unknown",
				"outcome", "failure",
				"payout_id", payout.PayoutID,
				"error", markErr,
			)
		}
		return domain.Payout{}, fmt.Errorf("%w: transfer for payout %s awaits gateway confirmation", domain.ErrGatewayUnavailable, payout.PayoutID)
	}

	update := ports.PayoutUpdate{RecipientToken: token, TransferRef: result.TransferRef, At: s.nowFn()}
	var updated domain.Payout
	if result.Settled {
		updated, _, err = s.payouts.Settle(dispatchCtx, payout.PayoutID, update)
	} else {
		updated, err = s.payouts.MarkAccepted(dispatchCtx, payout.PayoutID, update)
	}
	if err != nil {
		return domain.Payout{}, s.escalatePartialSettlement(dispatchCtx, payout, result.TransferRef, err)
	}

	s.logger.InfoContext(dispatchCtx, "payout accepted by gateway",
		"module", "application.orchestrator",
		"layer", "application",
		"operation", "initiate_transfer",
		"outcome", "success",
		"payout_id", updated.PayoutID,
		"event_id", updated.EventID,
		"transfer_ref", updated.TransferRef,
		"net_amount", updated.NetAmount,
		"status", updated.Status,
	)
	if updated.Status == domain.PayoutStatusSucceeded {
		s.enqueuePayoutCompleted(dispatchCtx, updated)
	}
	return updated, nil
}

// abortPayout releases the claim of a payout that never reached the
// gateway's transfer step, or that the gateway refused.
func (s *Service) abortPayout(ctx context.Context, payout domain.Payout, reason string, notify bool) {
	failed, _, err := s.payouts.Fail(ctx, payout.PayoutID, ports.PayoutUpdate{Reason: reason, At: s.nowFn()})
	if err != nil {
		s.logger.ErrorContext(ctx, "payout claim release failed",
			"module", "application.orchestrator",
			"layer", "application",
			"operation", "abort_payout",
			"outcome", "failure",
			"payout_id", payout.PayoutID,
			"event_id", payout.EventID,
			"error", err,
		)
		return
	}
	if notify {
		s.enqueuePayoutFailed(ctx, failed)
	}
}

func (s *Service) escalatePartialSettlement(ctx context.Context, payout domain.Payout, transferRef string, cause error) error {
	partial := &domain.PartialSettlementError{
		PayoutID:    payout.PayoutID,
		TransferRef: transferRef,
		Amount:      payout.NetAmount,
		Cause:       cause,
	}
	s.logger.ErrorContext(ctx, "ledger update failed after gateway accepted transfer",
		"module", "application.orchestrator",
		"layer", "application",
		"operation", "escalate_partial_settlement",
		"outcome", "escalated",
		"payout_id", payout.PayoutID,
		"kind", payout.Kind,
		"event_id", payout.EventID,
		"transfer_ref", transferRef,
		"net_amount", payout.NetAmount,
		"currency", payout.Currency,
		"record_ids", payout.RecordIDs,
		"error", cause,
	)
	if s.alerts != nil {
		if err := s.alerts.Escalate(ctx, s.partialSettlementEnvelope(payout, transferRef, cause)); err != nil {
			s.logger.ErrorContext(ctx, "operator alert delivery failed",
				"module", "application.orchestrator",
				"layer", "application",
				"operation", "escalate_partial_settlement",
				"outcome", "failure",
				"payout_id", payout.PayoutID,
				"error", err,
			)
		}
	}
	return partial
}

func (s *Service) logGatewayFailure(ctx context.Context, payout domain.Payout, operation string, err error) {
	s.logger.WarnContext(ctx, "payout gateway call failed",
		"module", "application.orchestrator",
		"layer", "application",
		"operation", operation,
		"outcome", "failure",
		"payout_id", payout.PayoutID,
		"event_id", payout.EventID,
		"gateway", payout.Gateway,
		"net_amount", payout.NetAmount,
		"retryable", domain.IsRetryable(err),
		"error", err,
	)
}

// classifyGatewayError makes sure every gateway failure is one of the two
// gateway classes. Deadlines and unclassified errors are treated as
// unavailability, never as success.
func classifyGatewayError(err error) error {
	switch {
	case errors.Is(err, domain.ErrGatewayRejected), errors.Is(err, domain.ErrGatewayUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
}
