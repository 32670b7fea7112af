package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransitionPayout(t *testing.T) {
	t.Parallel()

	allowed := [][2]PayoutStatus{
		{PayoutStatusReserved, PayoutStatusAccepted},
		{PayoutStatusReserved, PayoutStatusUnknown},
		{PayoutStatusReserved, PayoutStatusFailed},
		{PayoutStatusAccepted, PayoutStatusSucceeded},
		{PayoutStatusUnknown, PayoutStatusFailed},
	}
	for _, pair := range allowed {
		if !CanTransitionPayout(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}
	denied := [][2]PayoutStatus{
		{PayoutStatusSucceeded, PayoutStatusFailed},
		{PayoutStatusFailed, PayoutStatusSucceeded},
		{PayoutStatusAccepted, PayoutStatusReserved},
	}
	for _, pair := range denied {
		if CanTransitionPayout(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be denied", pair[0], pair[1])
		}
	}
}

func TestGiftTransitionsOnlyMoveForward(t *testing.T) {
	t.Parallel()

	if err := ValidateTransition(GiftStatusPending, GiftStatusPendingWithdrawal); err != nil {
		t.Fatalf("pending -> pending_withdrawal: %v", err)
	}
	if err := ValidateTransition(GiftStatusCompleted, GiftStatusWithdrawn); err != nil {
		t.Fatalf("completed -> withdrawn: %v", err)
	}
	if err := ValidateTransition(GiftStatusWithdrawn, GiftStatusCompleted); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if err := ValidateTransition(GiftStatusPending, GiftStatusWithdrawn); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if SettledStatusFor(ChannelCardAggregator) != GiftStatusPendingWithdrawal {
		t.Fatalf("card gifts must settle to pending_withdrawal")
	}
	if GiftStatusPending.CountsTowardRaised() || !GiftStatusWithdrawn.CountsTowardRaised() {
		t.Fatalf("raised total must count settled gifts only")
	}
}

func TestEventAcceptsContributions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	event := Event{EventID: "evt-1", OrganizerID: "org-1", Status: EventStatusActive}
	if !event.AcceptsContributions(now) {
		t.Fatalf("open-ended active event should accept contributions")
	}
	event.ExpiresAt = &past
	if event.AcceptsContributions(now) {
		t.Fatalf("event past its expiry should not accept contributions")
	}
	event.Status = "archived"
	if err := ValidateEvent(event); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestPartialSettlementIsNeverRetryable(t *testing.T) {
	t.Parallel()

	err := &PartialSettlementError{PayoutID: "p1", TransferRef: "tr1", Amount: 950, Cause: ErrGatewayUnavailable}
	if !errors.Is(err, ErrPartialSettlement) {
		t.Fatalf("expected partial settlement sentinel")
	}
	if IsRetryable(err) {
		t.Fatalf("partial settlement must not be retryable")
	}
	if !IsRetryable(ErrGatewayUnavailable) {
		t.Fatalf("plain gateway outage should be retryable")
	}
}
