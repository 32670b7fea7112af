package domain

import "time"

type FeeStatus string

const (
	FeeStatusCollected FeeStatus = "collected"
	FeeStatusWithdrawn FeeStatus = "withdrawn"
)

// PlatformFee is the operator's share of one settled gift. Only fees in
// FeeStatusCollected are withdrawable; a record without a recognised status
// is never eligible.
type PlatformFee struct {
	FeeID       string     `json:"fee_id"`
	Seq         int64      `json:"seq"`
	EventID     string     `json:"event_id"`
	GiftID      string     `json:"gift_id"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Status      FeeStatus  `json:"status"`
	PayoutID    string     `json:"payout_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`
}

func (s FeeStatus) Eligible() bool {
	return s == FeeStatusCollected
}
