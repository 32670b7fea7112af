package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("conflict")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrEventClosed           = errors.New("event closed")
	ErrDuplicateNotification = errors.New("duplicate notification")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrBelowMinimumPayout    = errors.New("below minimum payout")
	ErrGatewayRejected       = errors.New("gateway rejected request")
	ErrGatewayUnavailable    = errors.New("gateway unavailable")
	ErrPartialSettlement     = errors.New("partial settlement failure")
	ErrIllegalTransition     = errors.New("illegal status transition")
	ErrIdempotencyConflict   = errors.New("idempotency key conflict")
)

// PartialSettlementError reports a ledger write that failed after the gateway
// accepted a transfer. Money may have moved; it must never be retried blindly.
type PartialSettlementError struct {
	PayoutID    string
	TransferRef string
	Amount      int64
	Cause       error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("%s: payout %s transfer %s amount %d: %v", ErrPartialSettlement, e.PayoutID, e.TransferRef, e.Amount, e.Cause)
}

func (e *PartialSettlementError) Unwrap() []error {
	return []error{ErrPartialSettlement, e.Cause}
}

// IsRetryable reports whether a caller may safely retry the same request later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) && !errors.Is(err, ErrPartialSettlement)
}
