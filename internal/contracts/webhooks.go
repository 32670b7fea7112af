package contracts

// PaymentNotification is the signed body the card aggregator posts for every
// charge. Status is "success" unless the provider reports a two-phase
// "pending" authorization first.
type PaymentNotification struct {
	TransactionRef string          `json:"transaction_ref"`
	GrossAmount    int64           `json:"gross_amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	Metadata       PaymentMetadata `json:"metadata"`
}

type PaymentMetadata struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind,omitempty"`
	PayerName  string `json:"payer_name"`
	PayerEmail string `json:"payer_email,omitempty"`
	Message    string `json:"message,omitempty"`
}

// PushCallback is the mobile-money push result. It carries no gift metadata;
// that is resolved from the pending-payment store by CheckoutRef.
type PushCallback struct {
	CheckoutRef    string `json:"checkout_ref"`
	TransactionRef string `json:"transaction_ref"`
	ResultCode     int    `json:"result_code"`
	ResultDesc     string `json:"result_desc,omitempty"`
	Amount         int64  `json:"amount"`
}

// PayoutCallback reports a transfer's final outcome. Reference echoes the
// payout id sent with the transfer request.
type PayoutCallback struct {
	TransferRef   string `json:"transfer_ref"`
	Reference     string `json:"reference,omitempty"`
	Outcome       string `json:"outcome"`
	SettledAmount int64  `json:"settled_amount"`
	Reason        string `json:"reason,omitempty"`
}
