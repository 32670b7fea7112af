package contracts

import "time"

type UpsertEventRequest struct {
	OrganizerID string     `json:"organizer_id"`
	Title       string     `json:"title"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// WithdrawRequest carries an optional maximum. Zero withdraws the whole
// eligible balance.
type WithdrawRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Gateway    string `json:"gateway"`
	AccountRef string `json:"account_ref"`
}

type RegisterPendingPaymentRequest struct {
	CheckoutRef string `json:"checkout_ref"`
	EventID     string `json:"event_id"`
	Kind        string `json:"kind"`
	PayerName   string `json:"payer_name"`
	PayerEmail  string `json:"payer_email"`
	Message     string `json:"message"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type ReleasePayoutRequest struct {
	Reason string `json:"reason"`
}

type WithdrawalResponse struct {
	PayoutID      string `json:"payout_id"`
	Status        string `json:"status"`
	CoveredAmount int64  `json:"covered_amount"`
	TransferFee   int64  `json:"transfer_fee"`
	NetAmount     int64  `json:"net_amount"`
	TransferRef   string `json:"transfer_ref,omitempty"`
	RecordCount   int    `json:"record_count"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
