package domain

import (
	"fmt"
	"strings"
	"time"
)

type GiftStatus string
type Channel string

const (
	GiftStatusPending           GiftStatus = "pending"
	GiftStatusCompleted         GiftStatus = "completed"
	GiftStatusPendingWithdrawal GiftStatus = "pending_withdrawal"
	GiftStatusWithdrawn         GiftStatus = "withdrawn"
)

const (
	ChannelInstantPush    Channel = "instant-push"
	ChannelCardAggregator Channel = "card-aggregator"
)

// Gift is one contribution to an event. Only Status, WithdrawnAt and the
// payout claim change after insertion.
type Gift struct {
	GiftID         string     `json:"gift_id"`
	Seq            int64      `json:"seq"`
	EventID        string     `json:"event_id"`
	PayerName      string     `json:"payer_name,omitempty"`
	PayerEmail     string     `json:"payer_email,omitempty"`
	Message        string     `json:"message,omitempty"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	PlatformFee    int64      `json:"platform_fee"`
	NetAmount      int64      `json:"net_amount"`
	Channel        Channel    `json:"channel"`
	TransactionRef string     `json:"transaction_ref"`
	Status         GiftStatus `json:"status"`
	PayoutID       string     `json:"payout_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	WithdrawnAt    *time.Time `json:"withdrawn_at,omitempty"`
}

// DeveloperGift shares the gift lifecycle but carries no fee split.
type DeveloperGift struct {
	GiftID         string     `json:"gift_id"`
	Seq            int64      `json:"seq"`
	PayerName      string     `json:"payer_name,omitempty"`
	PayerEmail     string     `json:"payer_email,omitempty"`
	Message        string     `json:"message,omitempty"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Channel        Channel    `json:"channel"`
	TransactionRef string     `json:"transaction_ref"`
	Status         GiftStatus `json:"status"`
	PayoutID       string     `json:"payout_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	WithdrawnAt    *time.Time `json:"withdrawn_at,omitempty"`
}

func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelInstantPush:
		return ChannelInstantPush, nil
	case ChannelCardAggregator:
		return ChannelCardAggregator, nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, raw)
	}
}

// SettledStatusFor returns the status a gift reaches once its payment is
// confirmed. Push payments settle in the same step; card-aggregator funds
// are held until withdrawal.
func SettledStatusFor(channel Channel) GiftStatus {
	if channel == ChannelCardAggregator {
		return GiftStatusPendingWithdrawal
	}
	return GiftStatusCompleted
}

// CountsTowardRaised reports whether a status contributes to raisedTotal.
func (s GiftStatus) CountsTowardRaised() bool {
	switch s {
	case GiftStatusCompleted, GiftStatusPendingWithdrawal, GiftStatusWithdrawn:
		return true
	default:
		return false
	}
}

func (s GiftStatus) Eligible() bool {
	return s == GiftStatusCompleted || s == GiftStatusPendingWithdrawal
}

// EligibleGiftStatuses is the withdrawal filter for gifts and developer gifts.
var EligibleGiftStatuses = []GiftStatus{GiftStatusCompleted, GiftStatusPendingWithdrawal}

func CanTransitionGift(from, to GiftStatus) bool {
	switch from {
	case GiftStatusPending:
		return to == GiftStatusCompleted || to == GiftStatusPendingWithdrawal
	case GiftStatusCompleted, GiftStatusPendingWithdrawal:
		return to == GiftStatusWithdrawn
	default:
		return false
	}
}

// ValidateTransition rejects any move that is not a forward step.
func ValidateTransition(from, to GiftStatus) error {
	if !CanTransitionGift(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
