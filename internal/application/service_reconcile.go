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

const (
	payoutOutcomeSuccess = "success"
	payoutOutcomeFailure = "failure"
	payoutOutcomeTimeout = "timeout"
)

// HandlePayoutCallback applies the gateway's final word on a transfer. It is
// keyed by transfer reference and safe to replay in any order.
func (s *Service) HandlePayoutCallback(ctx context.Context, cb contracts.PayoutCallback) (CallbackResult, error) {
	outcome := strings.ToLower(strings.TrimSpace(cb.Outcome))
	switch outcome {
	case payoutOutcomeSuccess, payoutOutcomeFailure, payoutOutcomeTimeout:
	default:
		return CallbackResult{}, fmt.Errorf("%w: unknown payout outcome %q", domain.ErrInvalidInput, cb.Outcome)
	}
	payout, err := s.payoutForCallback(ctx, cb)
	if err != nil {
		return CallbackResult{}, err
	}

	update := ports.PayoutUpdate{TransferRef: strings.TrimSpace(cb.TransferRef), Reason: cb.Reason, At: s.nowFn()}
	if outcome == payoutOutcomeSuccess {
		return s.settleFromCallback(ctx, payout, cb, update)
	}
	if update.Reason == "" {
		update.Reason = "gateway reported " + outcome
	}
	failed, changed, err := s.payouts.Fail(ctx, payout.PayoutID, update)
	if errors.Is(err, domain.ErrIllegalTransition) {
		s.logger.WarnContext(ctx, "failure reported for settled payout",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "payout_callback",
			"outcome", "ignored",
			"payout_id", payout.PayoutID,
			"transfer_ref", cb.TransferRef,
		)
		return CallbackResult{PayoutID: payout.PayoutID, Status: payout.Status, Duplicate: true}, nil
	}
	if err != nil {
		return CallbackResult{}, err
	}
	if !changed {
		return CallbackResult{PayoutID: failed.PayoutID, Status: failed.Status, Duplicate: true}, nil
	}
	s.logger.WarnContext(ctx, "payout failed",
		"module", "application.reconciler",
		"layer", "application",
		"operation", "payout_callback",
		"outcome", outcome,
		"payout_id", failed.PayoutID,
		"event_id", failed.EventID,
		"transfer_ref", cb.TransferRef,
		"net_amount", failed.NetAmount,
		"reason", failed.FailureReason,
	)
	s.enqueuePayoutFailed(ctx, failed)
	return CallbackResult{PayoutID: failed.PayoutID, Status: failed.Status}, nil
}

// ReleasePayout lets an operator resolve a payout whose outcome never
// arrived. Only unknown payouts can be released; reserved and accepted ones
// may still move money. The claimed records become eligible again.
func (s *Service) ReleasePayout(ctx context.Context, actor Actor, payoutID, reason string) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return domain.Payout{}, domain.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Payout{}, fmt.Errorf("%w: release reason is required", domain.ErrInvalidInput)
	}
	current, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if current.Status != domain.PayoutStatusUnknown {
		return domain.Payout{}, fmt.Errorf("%w: payout %s is %s, only unknown payouts can be released", domain.ErrConflict, payoutID, current.Status)
	}
	failed, changed, err := s.payouts.Fail(ctx, payoutID, ports.PayoutUpdate{
		Reason: "released by " + actor.SubjectID + ": " + reason,
		At:     s.nowFn(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			return domain.Payout{}, fmt.Errorf("%w: payout %s already settled", domain.ErrConflict, payoutID)
		}
		return domain.Payout{}, err
	}
	if changed {
		s.enqueuePayoutFailed(ctx, failed)
	}
	return failed, nil
}

func (s *Service) settleFromCallback(ctx context.Context, payout domain.Payout, cb contracts.PayoutCallback, update ports.PayoutUpdate) (CallbackResult, error) {
	if cb.SettledAmount > 0 && cb.SettledAmount != payout.NetAmount {
		s.logger.WarnContext(ctx, "settled amount differs from requested transfer",
			"module", "application.reconciler",
			"layer", "application",
			"operation", "payout_callback",
			"outcome", "mismatch",
			"payout_id", payout.PayoutID,
			"transfer_ref", cb.TransferRef,
			"net_amount", payout.NetAmount,
			"settled_amount", cb.SettledAmount,
		)
	}
	settled, changed, err := s.payouts.Settle(ctx, payout.PayoutID, update)
	if errors.Is(err, domain.ErrIllegalTransition) {
		// The claim was already released, so the records may be paid twice.
		return CallbackResult{}, s.escalatePartialSettlement(ctx, payout, cb.TransferRef, err)
	}
	if err != nil {
		return CallbackResult{}, err
	}
	if !changed {
		return CallbackResult{PayoutID: settled.PayoutID, Status: settled.Status, Duplicate: true}, nil
	}
	s.logger.InfoContext(ctx, "payout settled",
		"module", "application.reconciler",
		"layer", "application",
		"operation", "payout_callback",
		"outcome", "success",
		"payout_id", settled.PayoutID,
		"event_id", settled.EventID,
		"transfer_ref", settled.TransferRef,
		"net_amount", settled.NetAmount,
	)
	s.enqueuePayoutCompleted(ctx, settled)
	return CallbackResult{PayoutID: settled.PayoutID, Status: settled.Status}, nil
}

// payoutForCallback finds the payout by transfer ref, falling back to our
// own reference for transfers whose initiation timed out before the
// gateway's ref was recorded.
func (s *Service) payoutForCallback(ctx context.Context, cb contracts.PayoutCallback) (domain.Payout, error) {
	ref := strings.TrimSpace(cb.TransferRef)
	reference := strings.TrimSpace(cb.Reference)
	if ref == "" && reference == "" {
		return domain.Payout{}, fmt.Errorf("%w: missing transfer_ref", domain.ErrInvalidInput)
	}
	if ref != "" {
		payout, err := s.payouts.GetByTransferRef(ctx, ref)
		if err == nil {
			return payout, nil
		}
		if !errors.Is(err, domain.ErrNotFound) || reference == "" {
			return domain.Payout{}, err
		}
	}
	return s.payouts.Get(ctx, reference)
}
