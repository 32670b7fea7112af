package domain

import (
	"fmt"
	"strings"
	"time"
)

type PayoutStatus string
type LedgerKind string

const (
	PayoutStatusReserved  PayoutStatus = "reserved"
	PayoutStatusAccepted  PayoutStatus = "accepted"
	PayoutStatusUnknown   PayoutStatus = "unknown"
	PayoutStatusSucceeded PayoutStatus = "succeeded"
	PayoutStatusFailed    PayoutStatus = "failed"
)

const (
	LedgerKindEventGift     LedgerKind = "event_gift"
	LedgerKindPlatformFee   LedgerKind = "platform_fee"
	LedgerKindDeveloperGift LedgerKind = "developer_gift"
)

// Payout is the durable record of one withdrawal attempt. While it is not
// terminal, every record listed in RecordIDs is claimed by it.
type Payout struct {
	PayoutID        string       `json:"payout_id"`
	Kind            LedgerKind   `json:"kind"`
	EventID         string       `json:"event_id,omitempty"`
	Currency        string       `json:"currency"`
	Gateway         string       `json:"gateway"`
	AccountRef      string       `json:"account_ref"`
	RequestedBy     string       `json:"requested_by"`
	RequestedAmount int64        `json:"requested_amount"`
	CoveredAmount   int64        `json:"covered_amount"`
	TransferFee     int64        `json:"transfer_fee"`
	NetAmount       int64        `json:"net_amount"`
	RecordIDs       []string     `json:"record_ids"`
	Status          PayoutStatus `json:"status"`
	RecipientToken  string       `json:"recipient_token,omitempty"`
	TransferRef     string       `json:"transfer_ref,omitempty"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	AcceptedAt      *time.Time   `json:"accepted_at,omitempty"`
	SettledAt       *time.Time   `json:"settled_at,omitempty"`
	FailedAt        *time.Time   `json:"failed_at,omitempty"`
}

func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusSucceeded || s == PayoutStatusFailed
}

func CanTransitionPayout(from, to PayoutStatus) bool {
	switch from {
	case PayoutStatusReserved:
		return to == PayoutStatusAccepted || to == PayoutStatusUnknown || to == PayoutStatusSucceeded || to == PayoutStatusFailed
	case PayoutStatusAccepted, PayoutStatusUnknown:
		return to == PayoutStatusSucceeded || to == PayoutStatusFailed
	default:
		return false
	}
}

func ParseLedgerKind(raw string) (LedgerKind, error) {
	switch LedgerKind(strings.ToLower(strings.TrimSpace(raw))) {
	case LedgerKindEventGift:
		return LedgerKindEventGift, nil
	case LedgerKindPlatformFee:
		return LedgerKindPlatformFee, nil
	case LedgerKindDeveloperGift:
		return LedgerKindDeveloperGift, nil
	default:
		return "", fmt.Errorf("%w: unknown ledger kind %q", ErrInvalidInput, raw)
	}
}

// LedgerScope names one withdrawable pool: an event's gifts, or the
// operator's fees or developer gifts in one currency.
type LedgerScope struct {
	Kind     LedgerKind
	EventID  string
	Currency string
}

func (s LedgerScope) Validate() error {
	switch s.Kind {
	case LedgerKindEventGift:
		if strings.TrimSpace(s.EventID) == "" {
			return fmt.Errorf("%w: missing event_id", ErrInvalidInput)
		}
	case LedgerKindPlatformFee, LedgerKindDeveloperGift:
		if strings.TrimSpace(s.Currency) == "" {
			return fmt.Errorf("%w: missing currency", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown ledger kind %q", ErrInvalidInput, s.Kind)
	}
	return nil
}

// LedgerRecord is the withdrawable projection of a gift, fee or developer
// gift. Amount is what the record contributes to a payout.
type LedgerRecord struct {
	RecordID  string
	Seq       int64
	Amount    int64
	CreatedAt time.Time
}
